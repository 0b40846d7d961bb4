package adapters

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"upc-catalog/internal/types"
)

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Location string `xml:"loc"`
}

// FetchSitemap downloads a flat sitemap and returns its page URLs in document order.
// Sitemap indexes are not followed; they fail to parse as a urlset.
func FetchSitemap(ctx context.Context, getter Getter, sitemapURL string) ([]string, error) {
	body, err := getter.Get(ctx, sitemapURL)
	if err != nil {
		return nil, &types.StageError{Kind: types.ErrManifestFetch, URL: sitemapURL, Err: err}
	}

	urls, err := ParseSitemap(body)
	if err != nil {
		return nil, &types.StageError{Kind: types.ErrManifestParse, URL: sitemapURL, Err: err}
	}
	return urls, nil
}

// ParseSitemap decodes a <urlset> document
func ParseSitemap(data []byte) ([]string, error) {
	var set urlSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to decode sitemap: %w", err)
	}

	urls := make([]string, 0, len(set.URLs))
	for _, entry := range set.URLs {
		loc := strings.TrimSpace(entry.Location)
		if loc == "" {
			continue
		}
		urls = append(urls, loc)
	}
	return urls, nil
}
