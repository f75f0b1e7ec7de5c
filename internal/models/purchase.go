package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductType представляет тип товара в корзине и покупке
type ProductType string

const (
	ProductTypeGeneric ProductType = "product"
	ProductTypeBook    ProductType = "book"
)

// Purchase представляет покупку в системе. Строки позиций — неизменяемые
// снапшоты товара на момент оформления; меняется только статус, заметки
// администратора и пары "кто/когда" по переходам.
type Purchase struct {
	ID                uuid.UUID      `json:"id" db:"id"`
	Serial            string         `json:"serial" db:"serial"`
	UserID            uuid.UUID      `json:"user_id" db:"user_id"`
	Status            PurchaseStatus `json:"status" db:"status"`
	Items             []PurchaseItem `json:"items"`
	Subtotal          float64        `json:"subtotal" db:"subtotal"`
	Discount          float64        `json:"discount" db:"discount"`
	Total             float64        `json:"total" db:"total"`
	CouponCode        *string        `json:"coupon_code,omitempty" db:"coupon_code"`
	PaymentMethodID   *uuid.UUID     `json:"payment_method_id,omitempty" db:"payment_method_id"`
	TransferredFrom   *string        `json:"transferred_from,omitempty" db:"transferred_from"`
	PaymentScreenshot *string        `json:"payment_screenshot,omitempty" db:"payment_screenshot"`
	ReceivedBy        *uuid.UUID     `json:"received_by,omitempty" db:"received_by"`
	ReceivedAt        *time.Time     `json:"received_at,omitempty" db:"received_at"`
	ConfirmedBy       *uuid.UUID     `json:"confirmed_by,omitempty" db:"confirmed_by"`
	ConfirmedAt       *time.Time     `json:"confirmed_at,omitempty" db:"confirmed_at"`
	ReturnedBy        *uuid.UUID     `json:"returned_by,omitempty" db:"returned_by"`
	ReturnedAt        *time.Time     `json:"returned_at,omitempty" db:"returned_at"`
	AdminNotes        *string        `json:"admin_notes,omitempty" db:"admin_notes"`
	AdminNoteBy       *uuid.UUID     `json:"admin_note_by,omitempty" db:"admin_note_by"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// PurchaseItem представляет позицию покупки — снапшот товара
type PurchaseItem struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	PurchaseID    uuid.UUID   `json:"purchase_id" db:"purchase_id"`
	ProductID     uuid.UUID   `json:"product_id" db:"product_id"`
	ProductType   ProductType `json:"product_type" db:"product_type"`
	Title         string      `json:"title" db:"title"`
	Thumbnail     *string     `json:"thumbnail,omitempty" db:"thumbnail"`
	Section       *string     `json:"section,omitempty" db:"section"`
	ProductSerial *string     `json:"product_serial,omitempty" db:"product_serial"`
	Price         float64     `json:"price" db:"price"`
	NameOnBook    *string     `json:"name_on_book,omitempty" db:"name_on_book"`
	NumberOnBook  *string     `json:"number_on_book,omitempty" db:"number_on_book"`
	SeriesName    *string     `json:"series_name,omitempty" db:"series_name"`
}

// CreateCartPurchaseRequest представляет запрос на оформление покупки из корзины
type CreateCartPurchaseRequest struct {
	PaymentMethodID   *uuid.UUID `json:"payment_method_id,omitempty"`
	TransferredFrom   *string    `json:"transferred_from,omitempty"`
	PaymentScreenshot *string    `json:"payment_screenshot,omitempty"`
	NameOnBook        *string    `json:"name_on_book,omitempty"`
	NumberOnBook      *string    `json:"number_on_book,omitempty"`
	SeriesName        *string    `json:"series_name,omitempty"`
}

// AdminNoteRequest представляет запрос на заметку администратора
type AdminNoteRequest struct {
	Note string `json:"note"`
}

// AdminPurchaseFilter задает фильтры списка покупок для админки
type AdminPurchaseFilter struct {
	Status   *PurchaseStatus
	DateFrom *time.Time
	DateTo   *time.Time
	MinTotal *float64
	MaxTotal *float64
	Search   string
	Limit    int
	Offset   int
}

// AdminPurchaseList представляет страницу списка покупок с общим количеством
type AdminPurchaseList struct {
	Purchases []*Purchase `json:"purchases"`
	Total     int         `json:"total"`
	Limit     int         `json:"limit"`
	Offset    int         `json:"offset"`
}
