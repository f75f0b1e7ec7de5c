package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart представляет активную корзину пользователя. У пользователя не может
// быть больше одной активной корзины; все позиции имеют один тип товара.
type Cart struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	Items      []CartItem `json:"items"`
	CouponCode *string    `json:"coupon_code,omitempty" db:"coupon_code"`
	Subtotal   float64    `json:"subtotal" db:"subtotal"`
	Discount   float64    `json:"discount" db:"discount"`
	Total      float64    `json:"total" db:"total"`
	TotalItems int        `json:"total_items" db:"total_items"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// CartItem представляет позицию корзины со снапшотом данных товара
type CartItem struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	CartID        uuid.UUID   `json:"cart_id" db:"cart_id"`
	ProductID     uuid.UUID   `json:"product_id" db:"product_id"`
	ProductType   ProductType `json:"product_type" db:"product_type"`
	Title         string      `json:"title" db:"title"`
	Thumbnail     *string     `json:"thumbnail,omitempty" db:"thumbnail"`
	Section       *string     `json:"section,omitempty" db:"section"`
	ProductSerial *string     `json:"product_serial,omitempty" db:"product_serial"`
	Price         float64     `json:"price" db:"price"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}

// AddCartItemRequest представляет запрос на добавление позиции в корзину
type AddCartItemRequest struct {
	ProductID     uuid.UUID   `json:"product_id"`
	ProductType   ProductType `json:"product_type"`
	Title         string      `json:"title"`
	Thumbnail     *string     `json:"thumbnail,omitempty"`
	Section       *string     `json:"section,omitempty"`
	ProductSerial *string     `json:"product_serial,omitempty"`
	Price         float64     `json:"price"`
}

// ApplyCouponRequest представляет запрос на применение купона к корзине
type ApplyCouponRequest struct {
	Code string `json:"code"`
}
