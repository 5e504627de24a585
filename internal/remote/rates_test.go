package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"checkout-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/convert", r.URL.Path)
		assert.Equal(t, "USD", r.URL.Query().Get("from"))
		assert.Equal(t, "RWF", r.URL.Query().Get("to"))
		assert.Equal(t, "100", r.URL.Query().Get("amount"))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"amount": "130000",
			"rate":   "1300",
		})
	}))
	defer srv.Close()

	rc := NewRateClient(srv.URL, time.Second)
	quote, err := rc.Convert(context.Background(), models.Credentials{}, "USD", "RWF", decimal.NewFromInt(100))

	require.NoError(t, err)
	assert.True(t, quote.Amount.Equal(decimal.NewFromInt(130000)))
	assert.True(t, quote.Rate.Equal(decimal.NewFromInt(1300)))
}

func TestConvertPropagatesRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rc := NewRateClient(srv.URL, time.Second)
	_, err := rc.Convert(context.Background(), models.Credentials{}, "USD", "RWF", decimal.NewFromInt(100))

	require.Error(t, err)
}
