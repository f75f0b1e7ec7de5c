package models

import (
	"time"

	"github.com/google/uuid"
)

// StatisticsFilter задает временной интервал отчётов по дате создания покупки.
type StatisticsFilter struct {
	From     time.Time
	To       time.Time
	TopLimit int
}

// PurchaseStatistics описывает сводные показатели по покупкам за период.
type PurchaseStatistics struct {
	From           time.Time              `json:"from"`
	To             time.Time              `json:"to"`
	CountsByStatus map[PurchaseStatus]int `json:"counts_by_status"`
	TotalPurchases int                    `json:"total_purchases"`
	Revenue        float64                `json:"revenue"`
	AverageCheck   float64                `json:"average_check"`
	GeneratedAt    time.Time              `json:"generated_at"`
}

// TopProduct описывает популярный товар среди подтверждённых покупок.
type TopProduct struct {
	ProductID uuid.UUID `json:"product_id"`
	Title     string    `json:"title"`
	Units     int       `json:"units"`
	Revenue   float64   `json:"revenue"`
}

// ProductStatistics описывает отчёт по товарам.
type ProductStatistics struct {
	From        time.Time    `json:"from"`
	To          time.Time    `json:"to"`
	TopProducts []TopProduct `json:"top_products"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// StaffResponseTime агрегирует время реакции сотрудника в рабочих минутах.
type StaffResponseTime struct {
	StaffID             uuid.UUID `json:"staff_id"`
	StaffName           string    `json:"staff_name"`
	ReceivedCount       int       `json:"received_count"`
	ConfirmedCount      int       `json:"confirmed_count"`
	AvgReceiveMinutes   int       `json:"avg_receive_minutes"`
	AvgConfirmMinutes   int       `json:"avg_confirm_minutes"`
	AvgReceiveFormatted string    `json:"avg_receive_formatted"`
	AvgConfirmFormatted string    `json:"avg_confirm_formatted"`
}

// ResponseTimeStatistics описывает отчёт по времени реакции персонала.
type ResponseTimeStatistics struct {
	From        time.Time            `json:"from"`
	To          time.Time            `json:"to"`
	Staff       []*StaffResponseTime `json:"staff"`
	GeneratedAt time.Time            `json:"generated_at"`
}
