package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RateClient looks up live currency conversions. Validity of the returned
// quote (positive amount and rate) is judged by the resolver, which owns the
// fallback policy.
type RateClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewRateClient creates a new live currency API client
func NewRateClient(baseURL string, timeout time.Duration) *RateClient {
	return &RateClient{
		baseURL: baseURL,
		client:  newHTTPClient(timeout),
		logger:  util.GetLogger(),
	}
}

type convertResponse struct {
	Amount decimal.Decimal `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
}

// Convert performs one live conversion lookup.
func (rc *RateClient) Convert(ctx context.Context, creds models.Credentials, from, to string, amount decimal.Decimal) (models.LiveQuote, error) {
	ctx, span := util.StartSpan(ctx, "RateClient.Convert")
	defer span.End()

	query := url.Values{}
	query.Set("from", from)
	query.Set("to", to)
	query.Set("amount", amount.String())

	var resp convertResponse
	endpoint := rc.baseURL + "/api/v1/convert?" + query.Encode()
	if err := doJSON(ctx, rc.client, creds, http.MethodGet, endpoint, nil, &resp); err != nil {
		return models.LiveQuote{}, fmt.Errorf("live conversion lookup failed: %w", err)
	}

	rc.logger.Debug("Live rate fetched",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("rate", resp.Rate.String()))
	return models.LiveQuote{Amount: resp.Amount, Rate: resp.Rate}, nil
}
