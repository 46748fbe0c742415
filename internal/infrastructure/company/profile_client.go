// Package company provides company profile lookups for submission emails.
package company

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/objections/backend/internal/application/submission"
	"github.com/objections/backend/internal/domain/objection"
	"go.uber.org/zap"
)

// maxResponseSize is the maximum allowed profile response size (1MB)
const maxResponseSize = 1024 * 1024

const operationGetProfile = "company.GetCompanyProfile"

// ProfileClient reads company profiles from the company profile API
type ProfileClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// ProfileClientOption is a functional option for ProfileClient
type ProfileClientOption func(*ProfileClient)

// WithAPIKey authenticates requests with basic auth using the key as user name
func WithAPIKey(key string) ProfileClientOption {
	return func(c *ProfileClient) {
		c.apiKey = key
	}
}

// NewProfileClient creates a new company profile API client
func NewProfileClient(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...ProfileClientOption) *ProfileClient {
	c := &ProfileClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetCompanyProfile fetches GET <base>/company/<number>
func (c *ProfileClient) GetCompanyProfile(ctx context.Context, companyNumber string) (*submission.CompanyProfile, error) {
	endpoint := fmt.Sprintf("%s/company/%s", c.baseURL, url.PathEscape(companyNumber))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, objection.NewUpstreamError(operationGetProfile, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.SetBasicAuth(c.apiKey, "")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, objection.NewUpstreamError(operationGetProfile, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, objection.NewUpstreamError(operationGetProfile, resp.StatusCode, nil)
	}

	var profile submission.CompanyProfile
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&profile); err != nil {
		return nil, objection.NewUpstreamError(operationGetProfile, resp.StatusCode, fmt.Errorf("invalid profile: %w", err))
	}
	return &profile, nil
}

// StaticProfiles serves profiles from memory. Unknown companies get
// an empty name and the default jurisdiction.
type StaticProfiles struct {
	Profiles map[string]submission.CompanyProfile
}

// GetCompanyProfile returns the stored profile for companyNumber
func (s StaticProfiles) GetCompanyProfile(_ context.Context, companyNumber string) (*submission.CompanyProfile, error) {
	if p, ok := s.Profiles[companyNumber]; ok {
		return &p, nil
	}
	return &submission.CompanyProfile{Jurisdiction: "england-wales"}, nil
}

var (
	_ submission.CompanyProfileLookup = (*ProfileClient)(nil)
	_ submission.CompanyProfileLookup = StaticProfiles{}
)
