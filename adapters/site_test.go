package adapters

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"upc-catalog/internal/types"
	"upc-catalog/utils"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestAdapter serves routes from a test server and points a descriptor at it
func newTestAdapter(t *testing.T, name string, routes map[string]string) (*SiteAdapter, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	config := types.DefaultConfig()
	config.RequestDelay = 0
	logger := testLogger()
	client := utils.NewHTTPClient(config, logger)
	t.Cleanup(client.Close)

	source := types.SourceDescriptor{
		Name:           name,
		SitemapURL:     server.URL + "/sitemap.xml",
		DetailBaseURL:  server.URL + "/products/",
		ProductBaseURL: "https://shop.example/products/",
	}
	return NewSiteAdapter(source, config, logger, client), server
}

func TestSlug(t *testing.T) {
	tests := []struct {
		url  string
		slug string
	}{
		{"https://shop.example/products/wool-runner", "wool-runner"},
		{"https://shop.example/products/wool-runner/", "wool-runner"},
		{"https://shop.example/products/wool-runner?variant=42", "wool-runner"},
		{"https://shop.example/en/products/tree-dasher#reviews", "tree-dasher"},
		{"products/relative-slug", "relative-slug"},
	}
	for _, tt := range tests {
		slug, err := Slug(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.slug, slug, tt.url)
	}
}

func TestSlug_Empty(t *testing.T) {
	_, err := Slug("https://shop.example/")
	assert.Error(t, err)

	_, err = Slug("")
	assert.Error(t, err)
}

func TestSiteAdapter_URLs(t *testing.T) {
	adapter := NewSiteAdapter(types.SourceDescriptor{
		Name:           "Acme",
		DetailBaseURL:  "https://api.acme.example/products/",
		ProductBaseURL: "https://acme.example/products/",
	}, types.DefaultConfig(), testLogger(), nil)

	assert.Equal(t, "Acme", adapter.Name())

	detail, err := adapter.DetailURL("https://acme.example/products/anvil/")
	require.NoError(t, err)
	assert.Equal(t, "https://api.acme.example/products/anvil.json", detail)
	assert.Equal(t, "https://acme.example/products/anvil", adapter.ProductPageURL("anvil"))
}

func TestSiteAdapter_ProductURLs(t *testing.T) {
	adapter, _ := newTestAdapter(t, "Acme", map[string]string{
		"/sitemap.xml": `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://acme.example/products/b</loc></url>
  <url><loc>https://acme.example/products/a</loc></url>
</urlset>`,
	})

	urls, err := adapter.ProductURLs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"https://acme.example/products/b", "https://acme.example/products/a"}, urls)
}

func TestSiteAdapter_ProductURLs_TagsSource(t *testing.T) {
	adapter, _ := newTestAdapter(t, "Acme", map[string]string{})

	_, err := adapter.ProductURLs(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrManifestFetch)
	assert.Contains(t, err.Error(), "source=Acme")
}
