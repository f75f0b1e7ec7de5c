package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"store-system/internal/apperror"
	"store-system/internal/config"
	"store-system/internal/database"
	"store-system/internal/kafka"
	"store-system/internal/logger"
	"store-system/internal/models"
	"store-system/internal/redis"

	"github.com/google/uuid"
)

const purchaseCacheTTL = 5 * time.Minute

// PurchaseService управляет жизненным циклом покупок: оформление из
// корзины, чтение, админский список и удаление с компенсациями.
type PurchaseService struct {
	db       *database.DB
	redis    *redis.Client
	log      *logger.Logger
	carts    *CartService
	coupons  *CouponService
	users    *UserService
	payments *PaymentMethodService
	events   *kafka.Producer
	cooldown time.Duration
	loc      *time.Location
}

// NewPurchaseService создаёт сервис покупок.
func NewPurchaseService(
	db *database.DB,
	redisClient *redis.Client,
	log *logger.Logger,
	carts *CartService,
	coupons *CouponService,
	users *UserService,
	payments *PaymentMethodService,
	events *kafka.Producer,
	cfg *config.BusinessConfig,
	loc *time.Location,
) *PurchaseService {
	if loc == nil {
		loc = time.UTC
	}

	cooldown := 30 * time.Second
	if cfg != nil && cfg.CheckoutCooldownSeconds > 0 {
		cooldown = time.Duration(cfg.CheckoutCooldownSeconds) * time.Second
	}

	return &PurchaseService{
		db:       db,
		redis:    redisClient,
		log:      log,
		carts:    carts,
		coupons:  coupons,
		users:    users,
		payments: payments,
		events:   events,
		cooldown: cooldown,
		loc:      loc,
	}
}

// CreateCartPurchase оформляет покупку из корзины пользователя. Проверки
// идут по порядку, каждая отклоняет запрос целиком; запись покупки,
// снапшоты позиций, потребление купона, выделение серийного номера и
// очистка корзины выполняются в одной транзакции.
func (s *PurchaseService) CreateCartPurchase(ctx context.Context, userID uuid.UUID, req *models.CreateCartPurchaseRequest) (*models.Purchase, error) {
	if req == nil {
		req = &models.CreateCartPurchaseRequest{}
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.checkCooldown(ctx, userID); err != nil {
		return nil, err
	}

	cart, err := s.carts.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, apperror.Validation("cart is empty", nil)
	}

	hasBooks := false
	subtotal := 0.0
	for _, item := range cart.Items {
		subtotal += item.Price
		if item.ProductType == models.ProductTypeBook {
			hasBooks = true
		}
	}

	if hasBooks {
		if req.NameOnBook == nil || *req.NameOnBook == "" ||
			req.NumberOnBook == nil || *req.NumberOnBook == "" ||
			req.SeriesName == nil || *req.SeriesName == "" {
			return nil, apperror.Validation("book purchases require name_on_book, number_on_book and series_name", nil)
		}
	}

	if cart.Total > 0 {
		if req.PaymentMethodID == nil || req.TransferredFrom == nil || *req.TransferredFrom == "" ||
			req.PaymentScreenshot == nil || *req.PaymentScreenshot == "" {
			return nil, apperror.Validation("payment method, transferred_from and payment_screenshot are required for paid purchases", nil)
		}

		method, err := s.payments.GetActive(ctx, *req.PaymentMethodID)
		if err != nil {
			return nil, err
		}
		if *req.TransferredFrom == method.Number {
			return nil, apperror.Validation("transferred_from cannot be the store's own payment method number", nil)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	serial, err := allocatePurchaseSerial(ctx, tx, user.Serial, now.In(s.loc))
	if err != nil {
		return nil, err
	}

	purchaseID := uuid.New()

	var discount float64
	if cart.CouponCode != nil && *cart.CouponCode != "" {
		discount, err = s.coupons.ConsumeWithTx(ctx, tx, *cart.CouponCode, purchaseID, userID)
		if err != nil {
			return nil, err
		}
		if discount > subtotal {
			discount = subtotal
		}
	}

	purchase := &models.Purchase{
		ID:                purchaseID,
		Serial:            serial,
		UserID:            userID,
		Status:            models.PurchaseStatusPending,
		Subtotal:          subtotal,
		Discount:          discount,
		Total:             subtotal - discount,
		CouponCode:        cart.CouponCode,
		PaymentMethodID:   req.PaymentMethodID,
		TransferredFrom:   req.TransferredFrom,
		PaymentScreenshot: req.PaymentScreenshot,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	insertQuery := `
		INSERT INTO purchases (id, serial, user_id, status, subtotal, discount, total, coupon_code, payment_method_id, transferred_from, payment_screenshot, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = tx.ExecContext(ctx, insertQuery, purchase.ID, purchase.Serial, purchase.UserID, purchase.Status,
		purchase.Subtotal, purchase.Discount, purchase.Total, purchase.CouponCode,
		purchase.PaymentMethodID, purchase.TransferredFrom, purchase.PaymentScreenshot,
		purchase.CreatedAt, purchase.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}

	for _, cartItem := range cart.Items {
		item := snapshotItem(purchaseID, cartItem, req)

		itemQuery := `
			INSERT INTO purchase_items (id, purchase_id, product_id, product_type, title, thumbnail, section, product_serial, price, name_on_book, number_on_book, series_name)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`
		_, err = tx.ExecContext(ctx, itemQuery, item.ID, item.PurchaseID, item.ProductID, item.ProductType,
			item.Title, item.Thumbnail, item.Section, item.ProductSerial, item.Price,
			item.NameOnBook, item.NumberOnBook, item.SeriesName)
		if err != nil {
			return nil, fmt.Errorf("failed to create purchase item: %w", err)
		}

		purchase.Items = append(purchase.Items, item)
	}

	if err := s.carts.ClearWithTx(ctx, tx, userID, cart.ID); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Всё после коммита — best-effort: покупка уже записана.
	if err := s.users.IncrementPurchaseStats(ctx, userID, purchase.Total); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("failed to increment purchase stats")
	}
	if s.events != nil {
		if err := s.events.PublishPurchaseCreated(purchase); err != nil {
			s.log.WithError(err).WithField("purchase_id", purchase.ID).Warn("failed to publish purchase created event")
		}
	}

	s.log.WithFields(map[string]interface{}{
		"purchase_id": purchase.ID,
		"serial":      purchase.Serial,
		"total":       purchase.Total,
	}).Info("Purchase created successfully")

	return purchase, nil
}

// snapshotItem переносит позицию корзины в неизменяемый снапшот покупки.
// Для книг добавляются персональные поля из запроса, для обычных товаров
// ничего не декорируется.
func snapshotItem(purchaseID uuid.UUID, cartItem models.CartItem, req *models.CreateCartPurchaseRequest) models.PurchaseItem {
	item := models.PurchaseItem{
		ID:            uuid.New(),
		PurchaseID:    purchaseID,
		ProductID:     cartItem.ProductID,
		ProductType:   cartItem.ProductType,
		Title:         cartItem.Title,
		Thumbnail:     cartItem.Thumbnail,
		Section:       cartItem.Section,
		ProductSerial: cartItem.ProductSerial,
		Price:         cartItem.Price,
	}

	if cartItem.ProductType == models.ProductTypeBook {
		item.NameOnBook = req.NameOnBook
		item.NumberOnBook = req.NumberOnBook
		item.SeriesName = req.SeriesName
	}

	return item
}

func (s *PurchaseService) checkCooldown(ctx context.Context, userID uuid.UUID) error {
	var last time.Time
	err := s.db.QueryRowContext(ctx, "SELECT created_at FROM purchases WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1", userID).Scan(&last)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check purchase cooldown: %w", err)
	}

	elapsed := time.Since(last)
	if elapsed < s.cooldown {
		remaining := int(math.Ceil((s.cooldown - elapsed).Seconds()))
		return apperror.RateLimited(fmt.Sprintf("please wait %d seconds before creating another purchase", remaining), nil)
	}
	return nil
}

const purchaseColumns = `id, serial, user_id, status, subtotal, discount, total, coupon_code, payment_method_id, transferred_from, payment_screenshot,
		received_by, received_at, confirmed_by, confirmed_at, returned_by, returned_at, admin_notes, admin_note_by, created_at, updated_at`

func scanPurchase(row interface {
	Scan(dest ...interface{}) error
}) (*models.Purchase, error) {
	p := &models.Purchase{}
	err := row.Scan(
		&p.ID, &p.Serial, &p.UserID, &p.Status, &p.Subtotal, &p.Discount, &p.Total,
		&p.CouponCode, &p.PaymentMethodID, &p.TransferredFrom, &p.PaymentScreenshot,
		&p.ReceivedBy, &p.ReceivedAt, &p.ConfirmedBy, &p.ConfirmedAt,
		&p.ReturnedBy, &p.ReturnedAt, &p.AdminNotes, &p.AdminNoteBy,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// GetPurchase возвращает покупку с позициями.
func (s *PurchaseService) GetPurchase(ctx context.Context, purchaseID uuid.UUID) (*models.Purchase, error) {
	key := redis.GenerateKey(redis.KeyPrefixPurchase, purchaseID.String())

	if s.redis != nil {
		var cached models.Purchase
		if err := s.redis.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	purchase, err := scanPurchase(s.db.QueryRowContext(ctx, "SELECT "+purchaseColumns+" FROM purchases WHERE id = $1", purchaseID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("purchase not found", err)
		}
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}

	items, err := s.loadItems(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	purchase.Items = items

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, purchase, purchaseCacheTTL); err != nil {
			s.log.WithError(err).Warn("failed to cache purchase")
		}
	}

	return purchase, nil
}

func (s *PurchaseService) loadItems(ctx context.Context, purchaseID uuid.UUID) ([]models.PurchaseItem, error) {
	query := `
		SELECT id, purchase_id, product_id, product_type, title, thumbnail, section, product_serial, price, name_on_book, number_on_book, series_name
		FROM purchase_items
		WHERE purchase_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase items: %w", err)
	}
	defer rows.Close()

	var items []models.PurchaseItem
	for rows.Next() {
		var item models.PurchaseItem
		if err := rows.Scan(&item.ID, &item.PurchaseID, &item.ProductID, &item.ProductType,
			&item.Title, &item.Thumbnail, &item.Section, &item.ProductSerial, &item.Price,
			&item.NameOnBook, &item.NumberOnBook, &item.SeriesName); err != nil {
			return nil, fmt.Errorf("failed to scan purchase item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchase items: %w", err)
	}

	return items, nil
}

// GetUserPurchases возвращает покупки пользователя постранично.
func (s *PurchaseService) GetUserPurchases(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Purchase, error) {
	if limit <= 0 {
		limit = 20
	}

	query := "SELECT " + purchaseColumns + " FROM purchases WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3"

	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get user purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*models.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchases: %w", err)
	}

	return purchases, nil
}

// AdminList возвращает страницу покупок с фильтрами и общим количеством.
// Поисковая строка, разбирающаяся как UUID, становится точечным поиском по
// идентификатору, иначе ищем по серийному номеру.
func (s *PurchaseService) AdminList(ctx context.Context, filter *models.AdminPurchaseFilter) (*models.AdminPurchaseList, error) {
	if filter == nil {
		filter = &models.AdminPurchaseFilter{}
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	where := " WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if filter.Status != nil {
		if !models.IsValidPurchaseStatus(*filter.Status) {
			return nil, apperror.Validation(fmt.Sprintf("unknown purchase status %q", *filter.Status), nil)
		}
		where += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.DateFrom != nil {
		where += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, *filter.DateFrom)
		argIndex++
	}
	if filter.DateTo != nil {
		where += fmt.Sprintf(" AND created_at <= $%d", argIndex)
		args = append(args, *filter.DateTo)
		argIndex++
	}
	if filter.MinTotal != nil {
		where += fmt.Sprintf(" AND total >= $%d", argIndex)
		args = append(args, *filter.MinTotal)
		argIndex++
	}
	if filter.MaxTotal != nil {
		where += fmt.Sprintf(" AND total <= $%d", argIndex)
		args = append(args, *filter.MaxTotal)
		argIndex++
	}
	if filter.Search != "" {
		if id, err := uuid.Parse(filter.Search); err == nil {
			where += fmt.Sprintf(" AND id = $%d", argIndex)
			args = append(args, id)
		} else {
			where += fmt.Sprintf(" AND serial ILIKE $%d", argIndex)
			args = append(args, "%"+filter.Search+"%")
		}
		argIndex++
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM purchases"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count purchases: %w", err)
	}

	listQuery := "SELECT " + purchaseColumns + " FROM purchases" + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	purchases := []*models.Purchase{}
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchases: %w", err)
	}

	return &models.AdminPurchaseList{
		Purchases: purchases,
		Total:     total,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
	}, nil
}

// DeletePurchase удаляет покупку с позициями и запускает компенсации:
// откат счётчиков покупателя, реактивация купона и пересчёт месячного
// счётчика подтвердившего сотрудника для подтверждённых покупок.
func (s *PurchaseService) DeletePurchase(ctx context.Context, purchaseID uuid.UUID) error {
	purchase, err := s.GetPurchase(ctx, purchaseID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM purchase_items WHERE purchase_id = $1", purchaseID); err != nil {
		return fmt.Errorf("failed to delete purchase items: %w", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM purchases WHERE id = $1", purchaseID)
	if err != nil {
		return fmt.Errorf("failed to delete purchase: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("purchase not found", nil)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.invalidate(ctx, purchaseID)

	// Компенсации best-effort: покупка уже удалена, сбои только логируются.
	if err := s.users.DecrementPurchaseStats(ctx, purchase.UserID, purchase.Total); err != nil {
		s.log.WithError(err).WithField("user_id", purchase.UserID).Warn("failed to decrement purchase stats")
	}

	if purchase.Status == models.PurchaseStatusConfirmed {
		if purchase.CouponCode != nil && *purchase.CouponCode != "" {
			if err := s.coupons.Reactivate(ctx, *purchase.CouponCode); err != nil {
				s.log.WithError(err).WithField("coupon_code", *purchase.CouponCode).Warn("failed to reactivate coupon")
			}
		}
		if purchase.ConfirmedBy != nil {
			if _, err := s.users.RecomputeMonthlyConfirmedCount(ctx, *purchase.ConfirmedBy); err != nil {
				s.log.WithError(err).WithField("staff_id", *purchase.ConfirmedBy).Warn("failed to recompute monthly confirmed count")
			}
		}
	}

	if s.events != nil {
		if err := s.events.PublishPurchaseDeleted(purchaseID, purchase.Serial); err != nil {
			s.log.WithError(err).WithField("purchase_id", purchaseID).Warn("failed to publish purchase deleted event")
		}
	}

	s.log.WithFields(map[string]interface{}{
		"purchase_id": purchaseID,
		"serial":      purchase.Serial,
	}).Info("Purchase deleted")

	return nil
}

func (s *PurchaseService) invalidate(ctx context.Context, purchaseID uuid.UUID) {
	if s.redis == nil {
		return
	}
	key := redis.GenerateKey(redis.KeyPrefixPurchase, purchaseID.String())
	if err := s.redis.Delete(ctx, key); err != nil {
		s.log.WithError(err).Warn("failed to invalidate purchase cache")
	}
}
