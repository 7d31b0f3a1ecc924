// Package discover finds candidate article links on a blog's listing page.
package discover

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"techup/lib/filters"
	"techup/lib/logger"
	"techup/lib/web"
)

// DefaultMaxLinks bounds how many links of a listing page are considered
// per run.
const DefaultMaxLinks = 10

type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type Discoverer struct {
	web       Getter
	maxLinks  int
	skipHosts []string
	log       *logger.Logger
}

func New(client Getter, maxLinks int, skipHosts []string, log *logger.Logger) *Discoverer {
	if maxLinks <= 0 {
		maxLinks = DefaultMaxLinks
	}
	return &Discoverer{web: client, maxLinks: maxLinks, skipHosts: skipHosts, log: log}
}

// Discover returns the absolute, deduplicated article links of sourceURL in
// page order. Any failure to load or parse the page is returned as an
// error; the caller decides how to carry on.
func (d *Discoverer) Discover(ctx context.Context, sourceURL string) ([]string, error) {
	page, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("parsing source url %q: %w", sourceURL, err)
	}

	body, err := d.web.Get(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("fetching listing %s: %w", sourceURL, err)
	}

	hrefs, baseHref, err := web.GetUrls(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing listing %s: %w", sourceURL, err)
	}

	base := page
	if baseHref != "" {
		if b, ok := web.Resolve(page, baseHref); ok {
			base, _ = url.Parse(b)
		}
	}

	self := strings.TrimSuffix(page.String(), "/")
	seen := map[string]bool{}
	var links []string
	for _, href := range hrefs {
		if !filters.HasArticleMarker(href) {
			continue
		}
		link, ok := web.Resolve(base, href)
		if !ok || seen[link] {
			continue
		}
		seen[link] = true
		if strings.TrimSuffix(link, "/") == self {
			continue
		}
		if filters.IsNonArticleURL(link) || !filters.IsGoodHost(link, d.skipHosts) {
			continue
		}
		links = append(links, link)
		if len(links) == d.maxLinks {
			break
		}
	}

	if len(links) == 0 {
		d.log.Info("No article links found on %s", sourceURL)
	} else {
		d.log.Debug("Found %d article links on %s", len(links), sourceURL)
	}
	return links, nil
}
