package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"upc-catalog/internal/types"
)

const detailSuffix = ".json"

// Getter fetches a URL body. *utils.HTTPClient satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// SiteAdapter binds a SourceDescriptor to the shared fetch logic.
// Every storefront uses the same code path; sources differ only by descriptor.
type SiteAdapter struct {
	source types.SourceDescriptor
	config *types.Config
	logger types.Logger
	getter Getter
}

// NewSiteAdapter creates an adapter for one source
func NewSiteAdapter(source types.SourceDescriptor, config *types.Config, logger types.Logger, getter Getter) *SiteAdapter {
	return &SiteAdapter{
		source: source,
		config: config,
		logger: logger,
		getter: getter,
	}
}

// Name returns the source name, used as the retailer key
func (s *SiteAdapter) Name() string {
	return s.source.Name
}

// Source returns the descriptor
func (s *SiteAdapter) Source() types.SourceDescriptor {
	return s.source
}

// ProductURLs lists product page URLs from the source's sitemap, in document order
func (s *SiteAdapter) ProductURLs(ctx context.Context) ([]string, error) {
	s.logger.Debugf("Fetching sitemap for %s: %s", s.source.Name, s.source.SitemapURL)
	urls, err := FetchSitemap(ctx, s.getter, s.source.SitemapURL)
	if err != nil {
		var stageErr *types.StageError
		if errors.As(err, &stageErr) {
			stageErr.Source = s.source.Name
		}
		return nil, err
	}
	return urls, nil
}

// DetailURL maps a product page URL to its JSON detail endpoint
func (s *SiteAdapter) DetailURL(productURL string) (string, error) {
	slug, err := Slug(productURL)
	if err != nil {
		return "", err
	}
	return s.source.DetailBaseURL + slug + detailSuffix, nil
}

// ProductPageURL is the canonical page URL stored on the offer
func (s *SiteAdapter) ProductPageURL(slug string) string {
	return s.source.ProductBaseURL + slug
}

// Slug returns the trailing path segment of a product URL, or the one before
// it when the URL ends in a slash. Query strings and fragments are ignored.
func Slug(productURL string) (string, error) {
	path := productURL
	if u, err := url.Parse(productURL); err == nil {
		path = u.Path
	}

	parts := strings.Split(path, "/")
	slug := parts[len(parts)-1]
	if slug == "" && len(parts) > 1 {
		slug = parts[len(parts)-2]
	}
	if slug == "" {
		return "", fmt.Errorf("no slug in product url %q", productURL)
	}
	return slug, nil
}
