// Package eligibility looks up the strike-off action code that decides
// whether a new objection starts OPEN or in a terminal state.
package eligibility

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	objectionapp "github.com/objections/backend/internal/application/objection"
	"github.com/objections/backend/internal/domain/objection"
	"go.uber.org/zap"
)

// maxResponseSize bounds the action-code response body (64KB)
const maxResponseSize = 64 * 1024

const operationGetActionCode = "eligibility.GetActionCode"

// OracleQueryClient reads action codes from the oracle query API
type OracleQueryClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOracleQueryClient creates a new oracle query API client
func NewOracleQueryClient(baseURL string, timeout time.Duration, logger *zap.Logger) *OracleQueryClient {
	return &OracleQueryClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// GetActionCode fetches the company's action code.
// Any transport, status or decode failure is an UpstreamError.
func (c *OracleQueryClient) GetActionCode(ctx context.Context, companyNumber string) (int64, error) {
	endpoint := fmt.Sprintf("%s/company/%s/action-code", c.baseURL, url.PathEscape(companyNumber))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, objection.NewUpstreamError(operationGetActionCode, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, objection.NewUpstreamError(operationGetActionCode, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, objection.NewUpstreamError(operationGetActionCode, resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, objection.NewUpstreamError(operationGetActionCode, resp.StatusCode, nil)
	}

	var actionCode int64
	if err := json.Unmarshal(body, &actionCode); err != nil {
		return 0, objection.NewUpstreamError(operationGetActionCode, resp.StatusCode, fmt.Errorf("invalid action code: %w", err))
	}

	c.logger.Debug("company action code",
		zap.String("company_number", companyNumber),
		zap.Int64("action_code", actionCode),
	)
	return actionCode, nil
}

// StaticLookup returns a fixed action code without calling out
type StaticLookup struct {
	ActionCode int64
}

// GetActionCode returns the configured code
func (s StaticLookup) GetActionCode(_ context.Context, _ string) (int64, error) {
	return s.ActionCode, nil
}

var (
	_ objectionapp.EligibilityLookup = (*OracleQueryClient)(nil)
	_ objectionapp.EligibilityLookup = StaticLookup{}
)
