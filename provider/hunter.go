package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/optimode/mailscout/types"
)

const defaultHunterBaseURL = "https://api.hunter.io/v2"

// HunterProvider queries the Hunter.io domain-search API. Requires an
// API key and the third-party enable flag.
type HunterProvider struct {
	apiKey  string
	enabled bool
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewHunterProvider(apiKey string, enabled bool, logger *slog.Logger) *HunterProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &HunterProvider{
		apiKey:  apiKey,
		enabled: enabled,
		baseURL: defaultHunterBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

func (p *HunterProvider) Name() string { return MethodThirdParty }

func (p *HunterProvider) Available() bool { return p.enabled && p.apiKey != "" }

// hunterResponse is the subset of the domain-search answer we consume.
// Hunter reports confidence as 0-100.
type hunterResponse struct {
	Data struct {
		Emails []struct {
			Value      string  `json:"value"`
			Confidence float64 `json:"confidence"`
		} `json:"emails"`
	} `json:"data"`
}

func (p *HunterProvider) Discover(ctx context.Context, domain string) ([]types.EmailCandidate, error) {
	query := url.Values{}
	query.Set("domain", domain)
	query.Set("api_key", p.apiKey)
	query.Set("limit", "100")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/domain-search?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hunter.io request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hunter.io returned status %d", resp.StatusCode)
	}

	var parsed hunterResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("hunter.io response: %w", err)
	}

	out := make([]types.EmailCandidate, 0, len(parsed.Data.Emails))
	for _, e := range parsed.Data.Emails {
		if e.Value == "" {
			continue
		}
		out = append(out, types.EmailCandidate{
			Email:      e.Value,
			Source:     "hunter_io",
			Confidence: e.Confidence / 100,
		})
	}
	return out, nil
}
