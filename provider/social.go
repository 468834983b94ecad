package provider

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/optimode/mailscout/types"
)

const socialConfidence = 0.7

// maxSocialBody caps how much of a profile page is read.
const maxSocialBody = 1 << 20

// SocialProvider looks for contact addresses on the company's LinkedIn
// and Twitter/X profiles. Candidate profile URLs are derived from the
// domain; the first URL per platform that answers 200 is scanned.
// Outbound requests share a polite rate limit and a small concurrency
// ceiling so the provider never hammers the platforms.
type SocialProvider struct {
	enabled bool
	client  *http.Client
	limiter *rate.Limiter
	sem     chan struct{}
	logger  *slog.Logger

	// profileURLs builds the candidate URLs per platform. Injectable
	// for tests.
	profileURLs func(domain string) [][]string
}

func NewSocialProvider(enabled bool, logger *slog.Logger) *SocialProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &SocialProvider{
		enabled: enabled,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
		sem:     make(chan struct{}, 3),
		logger:  logger,
		profileURLs: func(domain string) [][]string {
			handle := strings.TrimSuffix(domain, ".com")
			slug := strings.ReplaceAll(handle, ".", "-")
			return [][]string{
				{
					"https://www.linkedin.com/company/" + domain,
					"https://www.linkedin.com/company/" + handle,
					"https://www.linkedin.com/company/" + slug,
				},
				{
					"https://twitter.com/" + handle,
					"https://x.com/" + handle,
				},
			}
		},
	}
}

func (p *SocialProvider) Name() string { return MethodSocial }

func (p *SocialProvider) Available() bool { return p.enabled }

func (p *SocialProvider) Discover(ctx context.Context, domain string) ([]types.EmailCandidate, error) {
	emails := make(map[string]struct{})

	for _, platformURLs := range p.profileURLs(domain) {
		for _, url := range platformURLs {
			body, ok := p.fetch(ctx, url)
			if !ok {
				continue
			}
			for _, email := range extractEmails(body, domain) {
				emails[email] = struct{}{}
			}
			break // one hit per platform is enough
		}
	}

	out := make([]types.EmailCandidate, 0, len(emails))
	for email := range emails {
		out = append(out, types.EmailCandidate{
			Email:      email,
			Source:     "social_media",
			Confidence: socialConfidence,
			FoundAt:    "social:" + domain,
		})
	}
	return out, nil
}

// fetch retrieves a profile page under the shared rate limit. Any
// failure or non-200 answer is reported as a miss.
func (p *SocialProvider) fetch(ctx context.Context, url string) (string, bool) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", false
	}

	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-ctx.Done():
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", scraperUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("social profile fetch failed", "url", url, "error", err)
		return "", false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSocialBody))
	if err != nil {
		return "", false
	}
	return string(body), true
}
