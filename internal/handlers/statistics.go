package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"store-system/internal/config"
	"store-system/internal/logger"
	"store-system/internal/models"
)

const (
	defaultTopLimitFallback = 5
	maxTopLimit             = 50
)

// StatisticsHandler отдает отчётные срезы по покупкам.
type StatisticsHandler struct {
	provider StatisticsProvider
	log      *logger.Logger
	cfg      *config.StatisticsConfig
}

// NewStatisticsHandler создает новый StatisticsHandler.
func NewStatisticsHandler(provider StatisticsProvider, log *logger.Logger, cfg *config.StatisticsConfig) *StatisticsHandler {
	return &StatisticsHandler{
		provider: provider,
		log:      log,
		cfg:      cfg,
	}
}

// PurchaseStatistics возвращает сводку по покупкам за период.
func (h *StatisticsHandler) PurchaseStatistics(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, filter *models.StatisticsFilter) (interface{}, error) {
		return h.provider.GetPurchaseStatistics(ctx, filter)
	}, "Failed to load purchase statistics")
}

// ProductStatistics возвращает топ товаров по подтверждённым покупкам.
func (h *StatisticsHandler) ProductStatistics(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, filter *models.StatisticsFilter) (interface{}, error) {
		return h.provider.GetProductStatistics(ctx, filter)
	}, "Failed to load product statistics")
}

// ResponseTimeStatistics возвращает время реакции персонала в рабочих часах.
func (h *StatisticsHandler) ResponseTimeStatistics(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, filter *models.StatisticsFilter) (interface{}, error) {
		return h.provider.GetResponseTimeStatistics(ctx, filter)
	}, "Failed to load response time statistics")
}

func (h *StatisticsHandler) serve(w http.ResponseWriter, r *http.Request, load func(context.Context, *models.StatisticsFilter) (interface{}, error), internalMessage string) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if _, ok := requireStaff(w, r); !ok {
		return
	}

	filter, err := parseStatisticsFilter(r, h.cfg)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), statisticsTimeout(h.cfg))
	defer cancel()

	result, err := load(ctx, filter)
	if err != nil {
		writeServiceError(w, h.log, err, internalMessage)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

func parseStatisticsFilter(r *http.Request, cfg *config.StatisticsConfig) (*models.StatisticsFilter, error) {
	query := r.URL.Query()
	filter := &models.StatisticsFilter{}

	if toParam := query.Get("to"); toParam != "" {
		parsed, err := time.Parse("2006-01-02", toParam)
		if err != nil {
			return nil, fmt.Errorf("invalid 'to' date, expected YYYY-MM-DD")
		}
		filter.To = endOfDay(parsed)
	}
	if fromParam := query.Get("from"); fromParam != "" {
		parsed, err := time.Parse("2006-01-02", fromParam)
		if err != nil {
			return nil, fmt.Errorf("invalid 'from' date, expected YYYY-MM-DD")
		}
		filter.From = startOfDay(parsed)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		return nil, fmt.Errorf("'from' date must be before 'to' date")
	}

	topDefault := defaultTopLimitFallback
	if cfg != nil && cfg.DefaultTopLimit > 0 {
		topDefault = cfg.DefaultTopLimit
	}
	filter.TopLimit = topDefault
	if topParam := query.Get("top_limit"); topParam != "" {
		v, err := strconv.Atoi(topParam)
		if err != nil || v <= 0 || v > maxTopLimit {
			return nil, fmt.Errorf("top_limit must be between 1 and %d", maxTopLimit)
		}
		filter.TopLimit = v
	}

	return filter, nil
}

func statisticsTimeout(cfg *config.StatisticsConfig) time.Duration {
	if cfg != nil && cfg.RequestTimeoutSeconds > 0 {
		return time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	}
	return 5 * time.Second
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Millisecond*999), time.UTC)
}
