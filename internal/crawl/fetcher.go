package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nia/internal/contextutil"
)

// Page is one fetched document, reduced to text.
type Page struct {
	URL       string
	Title     string
	Text      string
	FetchedAt time.Time
}

// Fetcher retrieves the set of pages reachable from a seed URL.
type Fetcher interface {
	Fetch(ctx context.Context, seedURL string) ([]Page, error)
}

// SiteFetcher crawls a site breadth-first from a seed URL, staying on the
// seed's host. Pages that fail to fetch or are not HTML are skipped with a
// warning; only a failed seed fetch aborts the crawl.
type SiteFetcher struct {
	client   *http.Client
	maxDepth int
	maxPages int
}

// SiteFetcherConfig configures a SiteFetcher.
type SiteFetcherConfig struct {
	MaxDepth int
	MaxPages int
	Timeout  time.Duration
}

// NewSiteFetcher creates a new site fetcher.
func NewSiteFetcher(cfg SiteFetcherConfig) *SiteFetcher {
	maxDepth := cfg.MaxDepth
	if maxDepth < 0 {
		maxDepth = 0
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 30
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SiteFetcher{
		client:   &http.Client{Timeout: timeout},
		maxDepth: maxDepth,
		maxPages: maxPages,
	}
}

type crawlItem struct {
	url   string
	depth int
}

// Fetch crawls breadth-first from seedURL, visiting same-host pages up to the
// configured depth and page limits. Returned pages are in visit order and the
// seed is always first.
func (f *SiteFetcher) Fetch(ctx context.Context, seedURL string) ([]Page, error) {
	logger := contextutil.LoggerFromContext(ctx)

	seed, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}
	if seed.Scheme != "http" && seed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", seed.Scheme)
	}

	queue := []crawlItem{{url: normalizeURL(seed), depth: 0}}
	visited := map[string]bool{queue[0].url: true}
	var pages []Page

	for len(queue) > 0 && len(pages) < f.maxPages {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		item := queue[0]
		queue = queue[1:]

		content, err := f.fetchPage(ctx, item.url)
		if err != nil {
			if item.depth == 0 {
				return nil, fmt.Errorf("failed to fetch seed page: %w", err)
			}
			logger.WarnContext(ctx, "skipping page", "url", item.url, "error", err)
			continue
		}

		pages = append(pages, Page{
			URL:       item.url,
			Title:     content.Title,
			Text:      content.Text,
			FetchedAt: time.Now().UTC(),
		})

		if item.depth >= f.maxDepth {
			continue
		}

		base, err := url.Parse(item.url)
		if err != nil {
			continue
		}
		for _, link := range content.Links {
			next, ok := resolveLink(base, seed, link)
			if !ok || visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, crawlItem{url: next, depth: item.depth + 1})
		}
	}

	logger.InfoContext(ctx, "crawl completed", "seed", seedURL, "pages", len(pages))
	return pages, nil
}

func (f *SiteFetcher) fetchPage(ctx context.Context, pageURL string) (pageContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return pageContent{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return pageContent{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return pageContent{}, fmt.Errorf("bad status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text/html") {
		return pageContent{}, fmt.Errorf("unsupported content type %q", contentType)
	}

	return extractContent(resp.Body)
}

// resolveLink resolves a raw href against its page and reports whether the
// result is a crawlable same-host HTTP URL.
func resolveLink(base, seed *url.URL, raw string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if resolved.Hostname() != seed.Hostname() {
		return "", false
	}
	return normalizeURL(resolved), true
}

// normalizeURL strips the fragment so anchors on the same page dedupe.
func normalizeURL(u *url.URL) string {
	clone := *u
	clone.Fragment = ""
	return clone.String()
}
