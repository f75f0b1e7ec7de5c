package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"store-system/internal/apperror"
	"store-system/internal/database"
	"store-system/internal/logger"
	"store-system/internal/models"
	"store-system/internal/redis"

	"github.com/google/uuid"
)

const cartCacheTTL = 5 * time.Minute

// CartService управляет корзинами пользователей. У пользователя всегда не
// больше одной корзины, она создаётся лениво при первом обращении.
type CartService struct {
	db      *database.DB
	redis   *redis.Client
	log     *logger.Logger
	coupons *CouponService
}

// NewCartService создаёт сервис корзин.
func NewCartService(db *database.DB, redisClient *redis.Client, log *logger.Logger, coupons *CouponService) *CartService {
	return &CartService{
		db:      db,
		redis:   redisClient,
		log:     log,
		coupons: coupons,
	}
}

// GetCart возвращает корзину пользователя, создавая её при отсутствии.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	key := redis.GenerateKey(redis.KeyPrefixCart, userID.String())

	var cached models.Cart
	if s.redis != nil {
		if err := s.redis.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, cart, cartCacheTTL); err != nil {
			s.log.WithError(err).Warn("failed to cache cart")
		}
	}

	return cart, nil
}

func (s *CartService) getOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart := &models.Cart{}

	query := `
		SELECT id, user_id, coupon_code, subtotal, discount, total, total_items, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&cart.ID, &cart.UserID, &cart.CouponCode, &cart.Subtotal, &cart.Discount,
		&cart.Total, &cart.TotalItems, &cart.CreatedAt, &cart.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return s.createCart(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	items, err := s.loadItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return cart, nil
}

func (s *CartService) createCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart := &models.Cart{
		ID:        uuid.New(),
		UserID:    userID,
		Items:     []models.CartItem{},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	query := `
		INSERT INTO carts (id, user_id, coupon_code, subtotal, discount, total, total_items, created_at, updated_at)
		VALUES ($1, $2, NULL, 0, 0, 0, 0, $3, $4)
	`

	if _, err := s.db.ExecContext(ctx, query, cart.ID, cart.UserID, cart.CreatedAt, cart.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	s.log.WithField("user_id", userID).Debug("Cart created")
	return cart, nil
}

func (s *CartService) loadItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, product_type, title, thumbnail, section, product_serial, price, created_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart items: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(
			&item.ID, &item.CartID, &item.ProductID, &item.ProductType, &item.Title,
			&item.Thumbnail, &item.Section, &item.ProductSerial, &item.Price, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	return items, nil
}

// AddItem добавляет позицию в корзину. Корзина принимает позиции только
// одного типа товара; повторное добавление того же товара запрещено.
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req *models.AddCartItemRequest) (*models.Cart, error) {
	if req.Title == "" {
		return nil, apperror.Validation("item title is required", nil)
	}
	if req.Price < 0 {
		return nil, apperror.Validation("item price cannot be negative", nil)
	}
	if req.ProductType != models.ProductTypeGeneric && req.ProductType != models.ProductTypeBook {
		return nil, apperror.Validation(fmt.Sprintf("unknown product type %q", req.ProductType), nil)
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, item := range cart.Items {
		if item.ProductID == req.ProductID {
			return nil, apperror.Conflict("product is already in the cart", nil)
		}
		if item.ProductType != req.ProductType {
			return nil, apperror.Conflict("cart can only contain items of one product type", nil)
		}
	}

	query := `
		INSERT INTO cart_items (id, cart_id, product_id, product_type, title, thumbnail, section, product_serial, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if _, err := s.db.ExecContext(ctx, query,
		uuid.New(), cart.ID, req.ProductID, req.ProductType, req.Title,
		req.Thumbnail, req.Section, req.ProductSerial, req.Price, time.Now(),
	); err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	return s.refreshTotals(ctx, userID, cart.ID)
}

// RemoveItem удаляет позицию из корзины пользователя.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error) {
	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1 AND cart_id = $2", itemID, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, apperror.NotFound("cart item not found", nil)
	}

	return s.refreshTotals(ctx, userID, cart.ID)
}

// ApplyCoupon применяет купон к корзине. Купон проверяется на активность и
// срок действия, но потребляется только при оформлении покупки.
func (s *CartService) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*models.Cart, error) {
	if code == "" {
		return nil, apperror.Validation("coupon code is required", nil)
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, apperror.Conflict("cannot apply a coupon to an empty cart", nil)
	}

	if _, err := s.coupons.Validate(ctx, code); err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, "UPDATE carts SET coupon_code = $1, updated_at = $2 WHERE id = $3", code, time.Now(), cart.ID); err != nil {
		return nil, fmt.Errorf("failed to apply coupon: %w", err)
	}

	return s.refreshTotals(ctx, userID, cart.ID)
}

// RemoveCoupon снимает купон с корзины.
func (s *CartService) RemoveCoupon(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, "UPDATE carts SET coupon_code = NULL, updated_at = $1 WHERE id = $2", time.Now(), cart.ID); err != nil {
		return nil, fmt.Errorf("failed to remove coupon: %w", err)
	}

	return s.refreshTotals(ctx, userID, cart.ID)
}

// Clear очищает корзину: удаляет позиции, снимает купон, сбрасывает суммы.
func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cart.ID); err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE carts SET coupon_code = NULL, subtotal = 0, discount = 0, total = 0, total_items = 0, updated_at = $1 WHERE id = $2", time.Now(), cart.ID); err != nil {
		return fmt.Errorf("failed to reset cart: %w", err)
	}

	s.invalidate(ctx, userID)
	return nil
}

// ClearWithTx очищает корзину в рамках транзакции оформления покупки.
func (s *CartService) ClearWithTx(ctx context.Context, tx *sql.Tx, userID, cartID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID); err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE carts SET coupon_code = NULL, subtotal = 0, discount = 0, total = 0, total_items = 0, updated_at = $1 WHERE id = $2", time.Now(), cartID); err != nil {
		return fmt.Errorf("failed to reset cart: %w", err)
	}

	s.invalidate(ctx, userID)
	return nil
}

// refreshTotals пересчитывает суммы корзины по текущим позициям и купону
// и сохраняет результат.
func (s *CartService) refreshTotals(ctx context.Context, userID, cartID uuid.UUID) (*models.Cart, error) {
	s.invalidate(ctx, userID)

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	subtotal := 0.0
	for _, item := range cart.Items {
		subtotal += item.Price
	}

	discount := 0.0
	if cart.CouponCode != nil {
		coupon, err := s.coupons.Validate(ctx, *cart.CouponCode)
		if err != nil {
			// Купон стал недействительным после применения: снимаем его
			// молча, корзина остаётся рабочей.
			s.log.WithField("coupon_code", *cart.CouponCode).Warn("Dropping invalid coupon from cart")
			cart.CouponCode = nil
		} else {
			discount = coupon.Value
			if discount > subtotal {
				discount = subtotal
			}
		}
	}

	cart.Subtotal = subtotal
	cart.Discount = discount
	cart.Total = subtotal - discount
	cart.TotalItems = len(cart.Items)
	cart.UpdatedAt = time.Now()

	query := `
		UPDATE carts
		SET coupon_code = $1, subtotal = $2, discount = $3, total = $4, total_items = $5, updated_at = $6
		WHERE id = $7
	`

	if _, err := s.db.ExecContext(ctx, query, cart.CouponCode, cart.Subtotal, cart.Discount, cart.Total, cart.TotalItems, cart.UpdatedAt, cartID); err != nil {
		return nil, fmt.Errorf("failed to update cart totals: %w", err)
	}

	return cart, nil
}

func (s *CartService) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.redis == nil {
		return
	}
	key := redis.GenerateKey(redis.KeyPrefixCart, userID.String())
	if err := s.redis.Delete(ctx, key); err != nil {
		s.log.WithError(err).Warn("failed to invalidate cart cache")
	}
}
