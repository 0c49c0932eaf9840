package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maltedev/amazon-review-analyzer/internal/analyzer"
	"github.com/maltedev/amazon-review-analyzer/internal/metrics"
	"github.com/maltedev/amazon-review-analyzer/internal/models"
	"github.com/maltedev/amazon-review-analyzer/internal/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testURL = "https://www.amazon.com.tr/dp/B000TEST"

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, url string, obs analyzer.Observer) (*models.Report, error) {
	args := m.Called(ctx, url, obs)
	report, _ := args.Get(0).(*models.Report)
	return report, args.Error(1)
}

func newTestServer(a Analyzer) http.Handler {
	return NewRouter(NewHandlers(a, slog.Default()), RouterOptions{Registry: metrics.InitRegistry()})
}

func postAnalyze(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}

func TestAnalyzeHandler(t *testing.T) {
	t.Run("success returns the report", func(t *testing.T) {
		a := new(MockAnalyzer)
		report := &models.Report{
			ID:           "abc",
			URL:          testURL,
			Product:      &models.ProductRecord{Title: "Kupa", Price: "1.299,00 TL"},
			TotalReviews: 2,
			Results:      []models.SentimentResult{{Review: "Güzel", Sentiment: "😊 - Türkçe - (memnun)"}},
		}
		a.On("Analyze", mock.Anything, testURL, mock.Anything).Return(report, nil).Once()

		rec, body := postAnalyze(t, newTestServer(a), fmt.Sprintf(`{"url":%q}`, testURL))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, "abc", body["id"])
		assert.EqualValues(t, 2, body["total_reviews"])
		assert.Equal(t, true, body["sampled"])
		assert.NotContains(t, body, "error")
		a.AssertExpectations(t)
	})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed body", `{"url":`, http.StatusBadRequest},
		{"missing url", `{}`, http.StatusBadRequest},
		{"non amazon url", `{"url":"https://example.com/dp/X"}`, http.StatusBadRequest},
		{"plain http", `{"url":"http://www.amazon.com/dp/X"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := new(MockAnalyzer)

			rec, body := postAnalyze(t, newTestServer(a), tt.body)

			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, body["error"])
			a.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("unavailable product keeps the record", func(t *testing.T) {
		a := new(MockAnalyzer)
		report := &models.Report{ID: "x", URL: testURL, Product: models.NewExhaustedRecord()}
		a.On("Analyze", mock.Anything, testURL, mock.Anything).
			Return(report, analyzer.ErrProductUnavailable).Once()

		rec, body := postAnalyze(t, newTestServer(a), fmt.Sprintf(`{"url":%q}`, testURL))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, body["error"], "could not retrieve product details")
		product, ok := body["product"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, models.TitleNotFound, product["title"])
	})

	t.Run("timed out fetch is a gateway timeout", func(t *testing.T) {
		a := new(MockAnalyzer)
		report := &models.Report{ID: "x", URL: testURL, Product: models.NewExhaustedRecord()}
		a.On("Analyze", mock.Anything, testURL, mock.Anything).
			Return(report, fmt.Errorf("%w: %w", analyzer.ErrProductUnavailable, context.DeadlineExceeded)).Once()

		rec, body := postAnalyze(t, newTestServer(a), fmt.Sprintf(`{"url":%q}`, testURL))

		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
		assert.Equal(t, false, body["sampled"])
		assert.Contains(t, body["error"], "deadline exceeded")
	})

	t.Run("browser init failure", func(t *testing.T) {
		a := new(MockAnalyzer)
		a.On("Analyze", mock.Anything, testURL, mock.Anything).
			Return(nil, fmt.Errorf("%w: no chromium", analyzer.ErrBrowserInit)).Once()

		rec, body := postAnalyze(t, newTestServer(a), fmt.Sprintf(`{"url":%q}`, testURL))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, body["error"], "no chromium")
	})

	t.Run("unexpected error", func(t *testing.T) {
		a := new(MockAnalyzer)
		a.On("Analyze", mock.Anything, testURL, mock.Anything).Return(nil, errors.New("boom")).Once()

		rec, _ := postAnalyze(t, newTestServer(a), fmt.Sprintf(`{"url":%q}`, testURL))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(new(MockAnalyzer))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "review_analyzer_http_requests_total")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadGateway, statusFor(fmt.Errorf("%w: all retries failed", analyzer.ErrProductUnavailable)))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(fmt.Errorf("%w: %w", analyzer.ErrProductUnavailable, context.DeadlineExceeded)))
	assert.Equal(t, http.StatusBadRequest, statusFor(fmt.Errorf("wrapped: %w", scraper.ErrInvalidURL)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
