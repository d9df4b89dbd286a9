package websearch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const (
	defaultEndpoint  = "https://html.duckduckgo.com/html/"
	defaultUserAgent = "Mozilla/5.0 (compatible; urcbot/1.0)"

	// Retry queries get this prefix when the raw query finds nothing.
	expansionPrefix = "천안 도시재생지원센터 "
)

// Result is one formatted web search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Service issues external web searches for the last-resort stages.
type Service interface {
	// Search returns up to maxResults hits, retrying once with a
	// site-qualified expansion when the raw query comes back empty.
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Config represents web search client configuration.
type Config struct {
	Endpoint  string
	UserAgent string
	// RatePerSec caps outgoing searches (default: 1/sec, burst 2).
	RatePerSec float64
	Timeout    time.Duration
}

type client struct {
	http      *http.Client
	limiter   *rate.Limiter
	endpoint  string
	userAgent string
}

// NewService creates a rate-limited DuckDuckGo HTML search client.
func NewService(cfg *Config) Service {
	if cfg == nil {
		cfg = &Config{}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &client{
		endpoint:  endpoint,
		userAgent: userAgent,
		limiter:   rate.NewLimiter(rate.Limit(perSec), 2),
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

func (c *client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	results, err := c.searchOnce(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		return results, nil
	}

	// Empty first pass: the bare query is often too generic for the
	// municipal domain, so retry with the site-qualified expansion.
	if !strings.HasPrefix(query, strings.TrimSpace(expansionPrefix)) {
		slog.DebugContext(ctx, "web search empty, retrying with expansion", "query", query)
		return c.searchOnce(ctx, expansionPrefix+query, maxResults)
	}
	return results, nil
}

func (c *client) searchOnce(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.endpoint + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // cleanup

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search returned HTTP %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	results := parseResults(doc, maxResults)
	slog.DebugContext(ctx, "web search completed", "query", query, "results", len(results))
	return results, nil
}

// parseResults walks the result list markup: each hit carries its
// title and target in an a.result__a anchor and its snippet in a
// .result__snippet element.
func parseResults(doc *html.Node, maxResults int) []Result {
	var results []Result
	var current *Result

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= maxResults && current == nil {
			return
		}

		if n.Type == html.ElementNode {
			class := attr(n, "class")
			switch {
			case n.Data == "a" && strings.Contains(class, "result__a"):
				if current != nil {
					results = append(results, *current)
				}
				current = &Result{
					Title: strings.TrimSpace(nodeText(n)),
					URL:   resolveHref(attr(n, "href")),
				}
			case strings.Contains(class, "result__snippet"):
				if current != nil && current.Snippet == "" {
					current.Snippet = strings.TrimSpace(nodeText(n))
				}
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if current != nil && len(results) < maxResults {
		results = append(results, *current)
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	filtered := results[:0]
	for _, r := range results {
		if r.Title != "" && r.URL != "" {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// resolveHref unwraps the redirect links the HTML endpoint serves
// ("//duckduckgo.com/l/?uddg=<target>").
func resolveHref(href string) string {
	if href == "" {
		return ""
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		if decoded, err := url.QueryUnescape(target); err == nil {
			return decoded
		}
		return target
	}
	if parsed.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}
