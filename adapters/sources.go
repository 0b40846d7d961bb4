package adapters

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"upc-catalog/internal/types"
)

// DefaultSources are the storefronts ingested when no sources file is given
func DefaultSources() []types.SourceDescriptor {
	return []types.SourceDescriptor{
		{
			Name:           "Allbirds",
			SitemapURL:     "https://allbirds.ca/sitemap_products_1.xml?from=8668842131776&to=9772112544064",
			DetailBaseURL:  "https://allbirds.ca/products/",
			ProductBaseURL: "https://allbirds.ca/products/",
		},
		{
			Name:           "Tentree",
			SitemapURL:     "https://www.tentree.ca/sitemap_products_1.xml?from=299402821662&to=7193819480250",
			DetailBaseURL:  "https://www.tentree.ca/products/",
			ProductBaseURL: "https://www.tentree.ca/products/",
		},
	}
}

type sourcesFile struct {
	Sources []types.SourceDescriptor `yaml:"sources"`
}

// LoadSources reads descriptors from a YAML file of the form
//
//	sources:
//	  - name: Allbirds
//	    sitemap_url: https://allbirds.ca/sitemap_products_1.xml
//	    detail_base_url: https://allbirds.ca/products/
//	    product_base_url: https://allbirds.ca/products/
func LoadSources(path string) ([]types.SourceDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}
	return ParseSources(data)
}

// ParseSources decodes and validates a YAML sources document
func ParseSources(data []byte) ([]types.SourceDescriptor, error) {
	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}
	if err := ValidateSources(file.Sources); err != nil {
		return nil, err
	}
	return file.Sources, nil
}

// ValidateSources checks every descriptor is complete and names are unique
func ValidateSources(sources []types.SourceDescriptor) error {
	if len(sources) == 0 {
		return fmt.Errorf("no sources configured")
	}

	seen := make(map[string]bool)
	for i, src := range sources {
		name := strings.TrimSpace(src.Name)
		if name == "" {
			return fmt.Errorf("source %d: name is required", i)
		}
		if seen[name] {
			return fmt.Errorf("source %q: duplicate name", name)
		}
		seen[name] = true

		fields := map[string]string{
			"sitemap_url":      src.SitemapURL,
			"detail_base_url":  src.DetailBaseURL,
			"product_base_url": src.ProductBaseURL,
		}
		for field, raw := range fields {
			if err := checkURL(raw); err != nil {
				return fmt.Errorf("source %q: %s: %w", name, field, err)
			}
		}
	}
	return nil
}

// FilterSources keeps the named sources, preserving configured order
func FilterSources(sources []types.SourceDescriptor, names []string) ([]types.SourceDescriptor, error) {
	if len(names) == 0 {
		return sources, nil
	}

	wanted := make(map[string]bool)
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			wanted[strings.ToLower(n)] = true
		}
	}

	var out []types.SourceDescriptor
	for _, src := range sources {
		if wanted[strings.ToLower(src.Name)] {
			out = append(out, src)
			delete(wanted, strings.ToLower(src.Name))
		}
	}
	if len(wanted) > 0 {
		var missing []string
		for n := range wanted {
			missing = append(missing, n)
		}
		return nil, fmt.Errorf("unknown sources: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

func checkURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http(s) url", raw)
	}
	return nil
}
