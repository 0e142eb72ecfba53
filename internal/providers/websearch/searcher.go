// Package websearch grounds chatbot answers in live web results. It queries
// the DuckDuckGo HTML endpoint, follows the top hits, and extracts readable
// paragraph text from each page.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"ashserver/internal/infra"
)

// Searcher is the lookup interface chat providers consume.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
	"Mozilla/5.0 (X11; Linux x86_64)",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 15_0 like Mac OS X)",
}

// Options configures the DuckDuckGo searcher.
type Options struct {
	BaseURL    string // search endpoint, overridable in tests
	MaxResults int
	CacheSize  int // extracted snippets kept per URL
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// DuckDuckGo performs HTML-scrape searches with a per-URL snippet cache, so
// repeated questions about the same sources skip the page fetches.
type DuckDuckGo struct {
	baseURL    string
	maxResults int
	httpClient *http.Client
	logger     *infra.Logger
	cache      *lru.Cache[string, string]
}

// New constructs a searcher with sane defaults.
func New(opts Options) (*DuckDuckGo, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://html.duckduckgo.com/html"
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 3
	}
	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("websearch: build cache: %w", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &DuckDuckGo{
		baseURL:    baseURL,
		maxResults: maxResults,
		httpClient: httpClient,
		logger:     logger,
		cache:      cache,
	}, nil
}

// Search runs the query and returns the extracted snippets joined by blank
// lines. Pages that fail to fetch contribute an inline failure note instead
// of aborting the whole search.
func (d *DuckDuckGo) Search(ctx context.Context, query string) (string, error) {
	links, err := d.resultLinks(ctx, query)
	if err != nil {
		return "", err
	}
	if len(links) == 0 {
		return "", errors.New("websearch: no results")
	}

	snippets := make([]string, 0, len(links))
	for _, link := range links {
		if cached, ok := d.cache.Get(link); ok {
			snippets = append(snippets, cached)
			continue
		}
		snippet, err := d.extract(ctx, link)
		if err != nil {
			d.logger.Warn().Str("url", link).Err(err).Msg("websearch: extraction failed")
			snippets = append(snippets, fmt.Sprintf("Failed to retrieve %s", link))
			continue
		}
		d.cache.Add(link, snippet)
		snippets = append(snippets, snippet)
	}
	return strings.Join(snippets, "\n\n"), nil
}

// resultLinks scrapes the search page for the top result URLs.
func (d *DuckDuckGo) resultLinks(ctx context.Context, query string) ([]string, error) {
	endpoint := d.baseURL + "/?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websearch: build search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("websearch: search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("websearch: search status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("websearch: parse results: %w", err)
	}

	var links []string
	doc.Find("a.result__a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		if resolved := resolveRedirect(href); resolved != "" {
			links = append(links, resolved)
		}
		return len(links) < d.maxResults
	})
	return links, nil
}

// resolveRedirect unwraps DuckDuckGo's uddg redirect links.
func resolveRedirect(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	if parsed.Scheme == "http" || parsed.Scheme == "https" {
		return parsed.String()
	}
	return ""
}

// extract fetches the page and returns its paragraph text, falling back to
// the whole body when the page has no paragraphs.
func (d *DuckDuckGo) extract(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("websearch: build page request: %w", err)
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("websearch: fetch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("websearch: page status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("websearch: parse page: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	var paragraphs []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) > 0 {
		return strings.Join(paragraphs, "\n"), nil
	}
	body := strings.TrimSpace(doc.Find("body").Text())
	if body == "" {
		return "No readable text found.", nil
	}
	return body, nil
}
