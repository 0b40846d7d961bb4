package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"upc-catalog/internal/types"
	"upc-catalog/utils"
)

var errNoProduct = errors.New(`payload has no "product" object`)

type productPayload struct {
	Product *productBody `json:"product"`
}

type productBody struct {
	Title    string           `json:"title"`
	BodyHTML string           `json:"body_html"`
	Image    *imagePayload    `json:"image"`
	Images   []imagePayload   `json:"images"`
	Variants []variantPayload `json:"variants"`
}

type imagePayload struct {
	Src string `json:"src"`
}

type variantPayload struct {
	Barcode       string          `json:"barcode"`
	Price         decimal.Decimal `json:"price"`
	PriceCurrency string          `json:"price_currency"`
	Weight        float64         `json:"weight"`
	WeightUnit    string          `json:"weight_unit"`
	SKU           string          `json:"sku"`
}

// FetchProduct retrieves the detail payload behind productURL and builds a
// candidate record holding a single offer for this source. Only the first
// variant is used.
func (s *SiteAdapter) FetchProduct(ctx context.Context, productURL string) (types.Extraction, error) {
	slug, err := Slug(productURL)
	if err != nil {
		return types.Extraction{}, s.stageError(types.ErrDetailFetch, productURL, err)
	}
	detailURL := s.source.DetailBaseURL + slug + detailSuffix

	body, err := s.getter.Get(ctx, detailURL)
	if err != nil {
		return types.Extraction{}, s.stageError(types.ErrDetailFetch, detailURL, err)
	}

	product, err := decodeProduct(body)
	if err != nil {
		return types.Extraction{}, s.stageError(types.ErrDetailDecode, detailURL, err)
	}

	if len(product.Variants) == 0 {
		return types.Extraction{Skip: types.SkipNoVariants}, nil
	}
	variant := product.Variants[0]

	upc := variant.Barcode
	if !utils.ValidUPC(upc) {
		s.logger.Debugf("Skipping %s (%s): barcode %q is not a valid UPC", productURL, s.source.Name, upc)
		return types.Extraction{Skip: types.SkipInvalidUPC}, nil
	}

	description := product.BodyHTML
	if s.config.StripHTML {
		description = PlainText(description)
	}

	record := &types.CatalogRecord{
		ID:         upc,
		Title:      product.Title,
		Image:      primaryImage(product),
		Weight:     variant.Weight,
		WeightUnit: variant.WeightUnit,
		Retailers: []types.RetailerOffer{{
			Retailer:    s.source.Name,
			ProductURL:  s.ProductPageURL(slug),
			Price:       variant.Price,
			Currency:    variant.PriceCurrency,
			Description: description,
			SKU:         variant.SKU,
		}},
	}
	return types.Extraction{Record: record}, nil
}

func decodeProduct(body []byte) (*productBody, error) {
	var payload productPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload.Product == nil {
		return nil, errNoProduct
	}
	return payload.Product, nil
}

// primaryImage prefers the main image, then the first gallery image
func primaryImage(p *productBody) string {
	if p.Image != nil && strings.TrimSpace(p.Image.Src) != "" {
		return p.Image.Src
	}
	if len(p.Images) > 0 {
		return p.Images[0].Src
	}
	return ""
}

func (s *SiteAdapter) stageError(kind error, url string, err error) error {
	return &types.StageError{Kind: kind, Source: s.source.Name, URL: url, Err: err}
}
