package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"store-system/internal/config"
	"store-system/internal/models"

	"github.com/google/uuid"
)

type stubStatisticsProvider struct {
	purchase   *models.PurchaseStatistics
	product    *models.ProductStatistics
	response   *models.ResponseTimeStatistics
	err        error
	lastFilter *models.StatisticsFilter
}

func (s *stubStatisticsProvider) GetPurchaseStatistics(ctx context.Context, filter *models.StatisticsFilter) (*models.PurchaseStatistics, error) {
	s.lastFilter = filter
	return s.purchase, s.err
}
func (s *stubStatisticsProvider) GetProductStatistics(ctx context.Context, filter *models.StatisticsFilter) (*models.ProductStatistics, error) {
	s.lastFilter = filter
	return s.product, s.err
}
func (s *stubStatisticsProvider) GetResponseTimeStatistics(ctx context.Context, filter *models.StatisticsFilter) (*models.ResponseTimeStatistics, error) {
	s.lastFilter = filter
	return s.response, s.err
}

var _ StatisticsProvider = (*stubStatisticsProvider)(nil)

func newTestStatisticsHandler(provider StatisticsProvider) *StatisticsHandler {
	cfg := &config.StatisticsConfig{
		CacheTTLMinutes:       10,
		DefaultTopLimit:       5,
		RequestTimeoutSeconds: 5,
	}
	return NewStatisticsHandler(provider, newHandlerTestLogger(), cfg)
}

func TestStatisticsHandler_PurchaseStatistics(t *testing.T) {
	provider := &stubStatisticsProvider{purchase: &models.PurchaseStatistics{TotalPurchases: 10}}
	h := newTestStatisticsHandler(provider)

	req := authedRequest(http.MethodGet, "/api/cart-purchases/admin/statistics?from=2026-01-01&to=2026-01-31", nil, uuid.New(), models.UserRoleAdmin)
	rr := httptest.NewRecorder()

	h.PurchaseStatistics(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	f := provider.lastFilter
	if f == nil {
		t.Fatalf("expected filter to be passed")
	}
	wantFrom := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if !f.From.Equal(wantFrom) {
		t.Fatalf("unexpected from: %v", f.From)
	}
	if f.To.Day() != 31 {
		t.Fatalf("unexpected to: %v", f.To)
	}
}

func TestStatisticsHandler_ProductStatistics_TopLimit(t *testing.T) {
	provider := &stubStatisticsProvider{product: &models.ProductStatistics{}}
	h := newTestStatisticsHandler(provider)

	req := authedRequest(http.MethodGet, "/api/cart-purchases/admin/product-statistics?top_limit=3", nil, uuid.New(), models.UserRoleModerator)
	rr := httptest.NewRecorder()

	h.ProductStatistics(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if provider.lastFilter.TopLimit != 3 {
		t.Fatalf("unexpected top limit: %d", provider.lastFilter.TopLimit)
	}
}

func TestStatisticsHandler_DefaultTopLimitFromConfig(t *testing.T) {
	provider := &stubStatisticsProvider{product: &models.ProductStatistics{}}
	h := newTestStatisticsHandler(provider)

	req := authedRequest(http.MethodGet, "/api/cart-purchases/admin/product-statistics", nil, uuid.New(), models.UserRoleAdmin)
	rr := httptest.NewRecorder()

	h.ProductStatistics(rr, req)

	if provider.lastFilter.TopLimit != 5 {
		t.Fatalf("unexpected default top limit: %d", provider.lastFilter.TopLimit)
	}
}

func TestStatisticsHandler_InvalidDate(t *testing.T) {
	h := newTestStatisticsHandler(&stubStatisticsProvider{})

	req := authedRequest(http.MethodGet, "/api/cart-purchases/admin/statistics?from=January", nil, uuid.New(), models.UserRoleAdmin)
	rr := httptest.NewRecorder()

	h.PurchaseStatistics(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestStatisticsHandler_CustomerForbidden(t *testing.T) {
	h := newTestStatisticsHandler(&stubStatisticsProvider{})

	req := authedRequest(http.MethodGet, "/api/cart-purchases/admin/response-time", nil, uuid.New(), models.UserRoleCustomer)
	rr := httptest.NewRecorder()

	h.ResponseTimeStatistics(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}
