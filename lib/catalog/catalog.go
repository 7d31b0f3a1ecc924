// Package catalog loads the Source Catalog: category -> subcategory -> blogs.
package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"techup/lib/types"
)

var ErrEmptyCatalog = errors.New("catalog lists no blogs")

// Load reads and validates the catalog at path. Unlike the run state a
// missing or broken catalog is an error: there is nothing to scrape.
func Load(path string) (types.Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.Catalog{}, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (types.Catalog, error) {
	var c types.Catalog
	if err := c.UnmarshalJSON(raw); err != nil {
		return types.Catalog{}, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := Validate(c); err != nil {
		return types.Catalog{}, err
	}
	return c, nil
}

// Validate checks every blog has a name and an absolute http(s) URL.
func Validate(c types.Catalog) error {
	var errs []error
	blogs := 0
	for _, cat := range c.Categories {
		for _, sub := range cat.Subcategories {
			for i, blog := range sub.Blogs {
				blogs++
				where := fmt.Sprintf("%s/%s[%d]", cat.Name, sub.Name, i)
				if strings.TrimSpace(blog.Name) == "" {
					errs = append(errs, fmt.Errorf("%s: blog has no name", where))
				}
				u, err := url.Parse(blog.URL)
				if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
					errs = append(errs, fmt.Errorf("%s: invalid url %q", where, blog.URL))
				}
			}
		}
	}
	if blogs == 0 {
		errs = append(errs, ErrEmptyCatalog)
	}
	return errors.Join(errs...)
}
