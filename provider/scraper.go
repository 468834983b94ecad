package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"

	"github.com/optimode/mailscout/types"
)

const scraperUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36"

// targetedPages are the paths most likely to expose contact addresses,
// with the confidence assigned to addresses found there. The landing
// page scores 0.8, any other crawled page 0.6.
var targetedPages = []struct {
	path       string
	confidence float64
}{
	{"/contact", 0.95}, {"/contact-us", 0.95},
	{"/about", 0.85}, {"/about-us", 0.85},
	{"/team", 0.90}, {"/people", 0.90}, {"/staff", 0.90},
	{"/careers", 0.80}, {"/jobs", 0.80},
	{"/leadership", 0.85}, {"/management", 0.85},
	{"/press", 0.75}, {"/media", 0.75},
	{"/support", 0.80}, {"/help", 0.80},
}

// ScrapingProvider crawls the domain's website for addresses: the
// landing page, the targeted contact-style paths, then same-host links
// from the landing page until the page budget runs out.
type ScrapingProvider struct {
	maxPages  int
	timeout   time.Duration
	logger    *slog.Logger
	transport http.RoundTripper

	// baseURL builds the crawl root for a domain. Injectable for tests.
	baseURL func(domain string) string
}

// NewScrapingProvider creates a web scraping provider. maxPages <= 0
// defaults to 10.
func NewScrapingProvider(maxPages int, timeout time.Duration, logger *slog.Logger) *ScrapingProvider {
	if maxPages <= 0 {
		maxPages = 10
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScrapingProvider{
		maxPages: maxPages,
		timeout:  timeout,
		logger:   logger,
		baseURL: func(domain string) string {
			return "https://" + domain
		},
	}
}

func (p *ScrapingProvider) Name() string { return MethodScraping }

func (p *ScrapingProvider) Available() bool { return true }

func (p *ScrapingProvider) Discover(ctx context.Context, domain string) ([]types.EmailCandidate, error) {
	base := p.baseURL(domain)
	baseHost := hostOf(base)

	var mu sync.Mutex
	found := make(map[string]types.EmailCandidate)
	var extraLinks []string

	record := func(email string, confidence float64, foundAt string) {
		mu.Lock()
		defer mu.Unlock()
		if cur, ok := found[email]; ok && cur.Confidence >= confidence {
			return
		}
		found[email] = types.EmailCandidate{
			Email:      email,
			Source:     "web_scraping",
			Confidence: confidence,
			FoundAt:    foundAt,
		}
	}

	c := colly.NewCollector(colly.UserAgent(scraperUserAgent))
	c.SetRequestTimeout(p.timeout)
	if p.transport != nil {
		c.WithTransport(p.transport)
	}
	_ = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 3,
		RandomDelay: 500 * time.Millisecond,
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		confidence := pageConfidence(e.Request.URL.Path)
		pageURL := e.Request.URL.String()

		for _, email := range extractEmails(e.DOM.Text(), domain) {
			record(email, confidence, pageURL)
		}
		e.DOM.Find("meta[content]").Each(func(_ int, s *goquery.Selection) {
			content, _ := s.Attr("content")
			for _, email := range extractEmails(content, domain) {
				record(email, confidence, pageURL)
			}
		})
	})

	c.OnHTML("a[href^='mailto:']", func(e *colly.HTMLElement) {
		addr := strings.TrimPrefix(e.Attr("href"), "mailto:")
		addr, _, _ = strings.Cut(addr, "?")
		for _, email := range extractEmails(addr, domain) {
			record(email, pageConfidence(e.Request.URL.Path), e.Request.URL.String())
		}
	})

	// Same-host links on the landing page fill the remaining page budget.
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if !isRootPath(e.Request.URL.Path) {
			return
		}
		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link == "" || strings.HasPrefix(link, "mailto:") {
			return
		}
		if u, err := url.Parse(link); err == nil && sameHost(u.Host, baseHost) {
			mu.Lock()
			extraLinks = append(extraLinks, link)
			mu.Unlock()
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		p.logger.Debug("scrape failed", "url", r.Request.URL.String(), "error", err)
	})

	if err := c.Visit(base); err != nil {
		return nil, fmt.Errorf("scrape %s: %w", base, err)
	}
	visited := 1

	for _, tp := range targetedPages {
		if visited >= p.maxPages || ctx.Err() != nil {
			break
		}
		if err := c.Visit(base + tp.path); err == nil {
			visited++
		}
	}

	mu.Lock()
	links := append([]string(nil), extraLinks...)
	mu.Unlock()
	for _, link := range links {
		if visited >= p.maxPages || ctx.Err() != nil {
			break
		}
		if err := c.Visit(link); err == nil {
			visited++
		}
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]types.EmailCandidate, 0, len(found))
	for _, cand := range found {
		out = append(out, cand)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func pageConfidence(path string) float64 {
	if isRootPath(path) {
		return 0.8
	}
	trimmed := strings.TrimSuffix(path, "/")
	for _, tp := range targetedPages {
		if trimmed == tp.path {
			return tp.confidence
		}
	}
	return 0.6
}

func isRootPath(path string) bool {
	return path == "" || path == "/"
}

func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return u.Host
	}
	return rawURL
}

func sameHost(a, b string) bool {
	return a == b || a == "www."+b || b == "www."+a
}
