package handlers

import (
	"context"

	"store-system/internal/models"

	"github.com/google/uuid"
)

// ----- Carts -----

type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, req *models.AddCartItemRequest) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, error)
	ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*models.Cart, error)
	RemoveCoupon(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// ----- Purchases -----

type PurchaseService interface {
	CreateCartPurchase(ctx context.Context, userID uuid.UUID, req *models.CreateCartPurchaseRequest) (*models.Purchase, error)
	GetPurchase(ctx context.Context, purchaseID uuid.UUID) (*models.Purchase, error)
	GetUserPurchases(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Purchase, error)
	ReceivePurchase(ctx context.Context, purchaseID, actorID uuid.UUID) (*models.Purchase, error)
	ConfirmPurchase(ctx context.Context, purchaseID, actorID uuid.UUID) (*models.Purchase, error)
	ReturnPurchase(ctx context.Context, purchaseID, actorID uuid.UUID) (*models.Purchase, error)
	AddAdminNote(ctx context.Context, purchaseID, actorID uuid.UUID, note string) (*models.Purchase, error)
	AdminList(ctx context.Context, filter *models.AdminPurchaseFilter) (*models.AdminPurchaseList, error)
	DeletePurchase(ctx context.Context, purchaseID uuid.UUID) error
}

// ----- Coupons -----

type CouponService interface {
	CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, error)
	GetCoupon(ctx context.Context, code string) (*models.Coupon, error)
	ListCoupons(ctx context.Context, limit, offset int) ([]*models.Coupon, error)
	UpdateCoupon(ctx context.Context, code string, req *models.UpdateCouponRequest) (*models.Coupon, error)
	DeleteCoupon(ctx context.Context, code string) error
}

// ----- Users -----

type UserService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetMonthlyConfirmedCount(ctx context.Context, staffID uuid.UUID) (*models.MonthlyConfirmedCount, error)
}

// ----- Payment methods -----

type PaymentMethodService interface {
	ListActive(ctx context.Context) ([]*models.PaymentMethod, error)
}

// ----- Notifications -----

type NotificationService interface {
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
}

// ----- Statistics -----

type StatisticsProvider interface {
	GetPurchaseStatistics(ctx context.Context, filter *models.StatisticsFilter) (*models.PurchaseStatistics, error)
	GetProductStatistics(ctx context.Context, filter *models.StatisticsFilter) (*models.ProductStatistics, error)
	GetResponseTimeStatistics(ctx context.Context, filter *models.StatisticsFilter) (*models.ResponseTimeStatistics, error)
}

// ----- Health -----

type DBHealth interface {
	Health() error
}

type RedisHealth interface {
	Health(ctx context.Context) error
}
