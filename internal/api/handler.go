// Package api exposes the catalog over HTTP. It only reads and writes
// records by key; ingestion never goes through it.
package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"upc-catalog/catalog"
	"upc-catalog/internal/types"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

// Store is the catalog surface used by the handlers. *catalog.Catalog satisfies it.
type Store interface {
	Get(ctx context.Context, id string) (*types.CatalogRecord, error)
	Insert(ctx context.Context, record *types.CatalogRecord) error
	Update(ctx context.Context, id string, patch catalog.Patch) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]types.CatalogRecord, error)
	CountByRetailer(ctx context.Context) ([]types.Count, error)
	CountByWeightUnit(ctx context.Context) ([]types.Count, error)
}

type Handler struct {
	store  Store
	logger types.Logger
}

func NewHandler(store Store, logger types.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// NewRouter builds the gin engine with CORS and every catalog route
func NewRouter(store Store, logger types.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	NewHandler(store, logger).RegisterRoutes(router)
	return router
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	upc := r.Group("/upc")
	upc.GET("", h.list)          // GET /upc
	upc.POST("", h.create)       // POST /upc
	upc.GET("/:id", h.get)       // GET /upc/:id
	upc.PUT("/:id", h.update)    // PUT /upc/:id
	upc.DELETE("/:id", h.delete) // DELETE /upc/:id

	r.GET("/retailers", h.retailers)
	r.GET("/weight-units", h.weightUnits)
}

func (h *Handler) create(c *gin.Context) {
	var record types.CatalogRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if record.Retailers == nil {
		record.Retailers = []types.RetailerOffer{}
	}

	err := h.store.Insert(c.Request.Context(), &record)
	switch {
	case errors.Is(err, catalog.ErrExists):
		c.JSON(http.StatusConflict, gin.H{"message": "Entry already exists"})
	case errors.Is(err, catalog.ErrInvalidID), errors.Is(err, catalog.ErrInvalidRecord):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case err != nil:
		h.internalError(c, "create", err)
	default:
		c.JSON(http.StatusCreated, record)
	}
}

func (h *Handler) get(c *gin.Context) {
	record, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Entry not found"})
		return
	}
	if err != nil {
		h.internalError(c, "get", err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) update(c *gin.Context) {
	var patch catalog.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	err := h.store.Update(c.Request.Context(), c.Param("id"), patch)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Entry not found"})
	case errors.Is(err, catalog.ErrInvalidRecord), errors.Is(err, catalog.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case err != nil:
		h.internalError(c, "update", err)
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Entry updated successfully"})
	}
}

func (h *Handler) delete(c *gin.Context) {
	err := h.store.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Entry not found"})
		return
	}
	if err != nil {
		h.internalError(c, "delete", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Entry deleted successfully"})
}

func (h *Handler) list(c *gin.Context) {
	records, err := h.store.List(c.Request.Context())
	if err != nil {
		h.internalError(c, "list", err)
		return
	}

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		matched := records[:0]
		for _, r := range records {
			if fuzzy.MatchNormalizedFold(q, r.Title) {
				matched = append(matched, r)
			}
		}
		records = matched
	}

	switch c.Query("sort") {
	case "title":
		sort.SliceStable(records, func(i, j int) bool { return records[i].Title < records[j].Title })
	case "-title":
		sort.SliceStable(records, func(i, j int) bool { return records[i].Title > records[j].Title })
	}

	limit := parseInt(c.Query("limit"), defaultLimit)
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	offset := parseInt(c.Query("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	total := len(records)
	page := []types.CatalogRecord{}
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		page = records[offset:end]
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  page,
	})
}

func (h *Handler) retailers(c *gin.Context) {
	counts, err := h.store.CountByRetailer(c.Request.Context())
	if err != nil {
		h.internalError(c, "count retailers", err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *Handler) weightUnits(c *gin.Context) {
	counts, err := h.store.CountByWeightUnit(c.Request.Context())
	if err != nil {
		h.internalError(c, "count weight units", err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *Handler) internalError(c *gin.Context, op string, err error) {
	h.logger.Errorf("API %s failed for %s: %v", op, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
