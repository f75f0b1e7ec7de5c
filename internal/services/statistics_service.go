package services

import (
	"context"
	"fmt"
	"time"

	"store-system/internal/config"
	"store-system/internal/database"
	"store-system/internal/logger"
	"store-system/internal/models"
	"store-system/internal/redis"

	"github.com/google/uuid"
)

const (
	DefaultTopProductsLimit = 5
	defaultStatsCacheTTL    = 10 * time.Minute
)

// StatisticsService агрегирует отчёты по покупкам и кеширует тяжёлые выборки.
type StatisticsService struct {
	db         *database.DB
	redis      *redis.Client
	log        *logger.Logger
	hours      *BusinessHoursCalculator
	cacheTTL   time.Duration
	defaultTop int
}

// NewStatisticsService создает новый сервис статистики.
func NewStatisticsService(db *database.DB, redisClient *redis.Client, log *logger.Logger, hours *BusinessHoursCalculator, cfg *config.StatisticsConfig) *StatisticsService {
	cacheTTL := defaultStatsCacheTTL
	defaultTop := DefaultTopProductsLimit

	if cfg != nil {
		if cfg.CacheTTLMinutes > 0 {
			cacheTTL = time.Duration(cfg.CacheTTLMinutes) * time.Minute
		}
		if cfg.DefaultTopLimit > 0 {
			defaultTop = cfg.DefaultTopLimit
		}
	}

	return &StatisticsService{
		db:         db,
		redis:      redisClient,
		log:        log,
		hours:      hours,
		cacheTTL:   cacheTTL,
		defaultTop: defaultTop,
	}
}

// GetPurchaseStatistics возвращает сводку по покупкам за период: количество
// по статусам, выручку и средний чек по подтверждённым.
func (s *StatisticsService) GetPurchaseStatistics(ctx context.Context, filter *models.StatisticsFilter) (*models.PurchaseStatistics, error) {
	filter = s.normalizeFilter(filter)
	cacheKey := s.buildCacheKey("purchases", filter)

	var cached models.PurchaseStatistics
	if s.tryGetFromCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	countsQuery := `
		SELECT status, COUNT(*)
		FROM purchases
		WHERE created_at BETWEEN $1 AND $2
		GROUP BY status
	`

	rows, err := s.db.QueryContext(ctx, countsQuery, filter.From, filter.To)
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase counts: %w", err)
	}
	defer rows.Close()

	counts := map[models.PurchaseStatus]int{}
	total := 0
	for rows.Next() {
		var (
			status models.PurchaseStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan purchase counts: %w", err)
		}
		counts[status] = count
		total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchase counts: %w", err)
	}

	revenueQuery := `
		SELECT COALESCE(SUM(total), 0) AS revenue,
		       COALESCE(AVG(total), 0) AS average_check
		FROM purchases
		WHERE status = 'confirmed' AND created_at BETWEEN $1 AND $2
	`

	result := &models.PurchaseStatistics{
		From:           filter.From,
		To:             filter.To,
		CountsByStatus: counts,
		TotalPurchases: total,
		GeneratedAt:    time.Now(),
	}

	if err := s.db.QueryRowContext(ctx, revenueQuery, filter.From, filter.To).Scan(&result.Revenue, &result.AverageCheck); err != nil {
		return nil, fmt.Errorf("failed to load revenue summary: %w", err)
	}

	s.saveToCache(ctx, cacheKey, result)
	return result, nil
}

// GetProductStatistics возвращает популярные товары среди подтверждённых
// покупок по снапшотам позиций.
func (s *StatisticsService) GetProductStatistics(ctx context.Context, filter *models.StatisticsFilter) (*models.ProductStatistics, error) {
	filter = s.normalizeFilter(filter)
	cacheKey := s.buildCacheKey("products", filter)

	var cached models.ProductStatistics
	if s.tryGetFromCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	query := `
		SELECT pi.product_id,
		       MAX(pi.title) AS title,
		       COUNT(*) AS units,
		       COALESCE(SUM(pi.price), 0) AS revenue
		FROM purchase_items pi
		JOIN purchases p ON p.id = pi.purchase_id
		WHERE p.status = 'confirmed' AND p.created_at BETWEEN $1 AND $2
		GROUP BY pi.product_id
		ORDER BY units DESC, revenue DESC
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, filter.From, filter.To, filter.TopLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top products: %w", err)
	}
	defer rows.Close()

	result := &models.ProductStatistics{
		From:        filter.From,
		To:          filter.To,
		TopProducts: []models.TopProduct{},
		GeneratedAt: time.Now(),
	}

	for rows.Next() {
		var item models.TopProduct
		if err := rows.Scan(&item.ProductID, &item.Title, &item.Units, &item.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan top product: %w", err)
		}
		result.TopProducts = append(result.TopProducts, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate top products: %w", err)
	}

	s.saveToCache(ctx, cacheKey, result)
	return result, nil
}

type responseTimeRow struct {
	staffID   uuid.UUID
	createdAt time.Time
	actedAt   time.Time
}

// GetResponseTimeStatistics возвращает среднее время реакции персонала в
// рабочих минутах: created->received для принявших и received->confirmed
// для подтвердивших. Ночные часы и часы вне рабочего окна не считаются.
func (s *StatisticsService) GetResponseTimeStatistics(ctx context.Context, filter *models.StatisticsFilter) (*models.ResponseTimeStatistics, error) {
	filter = s.normalizeFilter(filter)
	cacheKey := s.buildCacheKey("response_time", filter)

	var cached models.ResponseTimeStatistics
	if s.tryGetFromCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	receiveRows, err := s.fetchResponsePairs(ctx,
		"SELECT received_by, created_at, received_at FROM purchases WHERE received_by IS NOT NULL AND received_at IS NOT NULL AND created_at BETWEEN $1 AND $2",
		filter)
	if err != nil {
		return nil, err
	}

	confirmRows, err := s.fetchResponsePairs(ctx,
		"SELECT confirmed_by, received_at, confirmed_at FROM purchases WHERE confirmed_by IS NOT NULL AND confirmed_at IS NOT NULL AND received_at IS NOT NULL AND created_at BETWEEN $1 AND $2",
		filter)
	if err != nil {
		return nil, err
	}

	type staffAgg struct {
		receiveMinutes int
		receiveCount   int
		confirmMinutes int
		confirmCount   int
	}
	agg := map[uuid.UUID]*staffAgg{}

	ensure := func(id uuid.UUID) *staffAgg {
		if a, ok := agg[id]; ok {
			return a
		}
		a := &staffAgg{}
		agg[id] = a
		return a
	}

	for _, row := range receiveRows {
		a := ensure(row.staffID)
		a.receiveMinutes += s.hours.MinutesBetween(row.createdAt, row.actedAt)
		a.receiveCount++
	}
	for _, row := range confirmRows {
		a := ensure(row.staffID)
		a.confirmMinutes += s.hours.MinutesBetween(row.createdAt, row.actedAt)
		a.confirmCount++
	}

	result := &models.ResponseTimeStatistics{
		From:        filter.From,
		To:          filter.To,
		Staff:       []*models.StaffResponseTime{},
		GeneratedAt: time.Now(),
	}

	for staffID, a := range agg {
		item := &models.StaffResponseTime{
			StaffID:        staffID,
			ReceivedCount:  a.receiveCount,
			ConfirmedCount: a.confirmCount,
		}
		if a.receiveCount > 0 {
			item.AvgReceiveMinutes = a.receiveMinutes / a.receiveCount
		}
		if a.confirmCount > 0 {
			item.AvgConfirmMinutes = a.confirmMinutes / a.confirmCount
		}
		item.AvgReceiveFormatted = FormatMinutes(item.AvgReceiveMinutes)
		item.AvgConfirmFormatted = FormatMinutes(item.AvgConfirmMinutes)
		result.Staff = append(result.Staff, item)
	}

	s.fillStaffNames(ctx, result.Staff)

	s.saveToCache(ctx, cacheKey, result)
	return result, nil
}

func (s *StatisticsService) fetchResponsePairs(ctx context.Context, query string, filter *models.StatisticsFilter) ([]responseTimeRow, error) {
	rows, err := s.db.QueryContext(ctx, query, filter.From, filter.To)
	if err != nil {
		return nil, fmt.Errorf("failed to load response pairs: %w", err)
	}
	defer rows.Close()

	var result []responseTimeRow
	for rows.Next() {
		var row responseTimeRow
		if err := rows.Scan(&row.staffID, &row.createdAt, &row.actedAt); err != nil {
			return nil, fmt.Errorf("failed to scan response pair: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate response pairs: %w", err)
	}

	return result, nil
}

// fillStaffNames подставляет имена сотрудников. Сбой резолва имени не
// ломает отчёт, строка остаётся без имени.
func (s *StatisticsService) fillStaffNames(ctx context.Context, staff []*models.StaffResponseTime) {
	for _, item := range staff {
		var name string
		err := s.db.QueryRowContext(ctx, "SELECT name FROM users WHERE id = $1", item.StaffID).Scan(&name)
		if err != nil {
			s.log.WithError(err).WithField("staff_id", item.StaffID).Warn("failed to resolve staff name")
			continue
		}
		item.StaffName = name
	}
}

func (s *StatisticsService) buildCacheKey(kind string, filter *models.StatisticsFilter) string {
	return redis.GenerateKey(redis.KeyPrefixStats, fmt.Sprintf(
		"%s:%s:%s:%d",
		kind,
		filter.From.Format("2006-01-02"),
		filter.To.Format("2006-01-02"),
		filter.TopLimit,
	))
}

func (s *StatisticsService) normalizeFilter(filter *models.StatisticsFilter) *models.StatisticsFilter {
	if filter == nil {
		filter = &models.StatisticsFilter{}
	}
	if filter.To.IsZero() {
		filter.To = time.Now()
	}
	if filter.From.IsZero() {
		filter.From = filter.To.AddDate(0, -1, 0)
	}
	if filter.TopLimit <= 0 {
		filter.TopLimit = s.defaultTop
	}
	return filter
}

func (s *StatisticsService) tryGetFromCache(ctx context.Context, key string, dest interface{}) bool {
	if s.redis == nil {
		return false
	}

	if err := s.redis.Get(ctx, key, dest); err != nil {
		return false
	}
	return true
}

func (s *StatisticsService) saveToCache(ctx context.Context, key string, value interface{}) {
	if s.redis == nil {
		return
	}

	if err := s.redis.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Failed to cache statistics result")
	}
}
