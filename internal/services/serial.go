package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// allocatePurchaseSerial выделяет следующий порядковый номер покупки для
// пользователя за указанный день. Счётчик инкрементируется атомарно в
// рамках транзакции оформления, поэтому параллельные оформления получают
// разные номера.
func allocatePurchaseSerial(ctx context.Context, tx *sql.Tx, userSerial string, day time.Time) (string, error) {
	query := `
		INSERT INTO purchase_serials (user_serial, day, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_serial, day) DO UPDATE SET seq = purchase_serials.seq + 1
		RETURNING seq
	`

	var seq int
	if err := tx.QueryRowContext(ctx, query, userSerial, day.Format("2006-01-02")).Scan(&seq); err != nil {
		return "", fmt.Errorf("failed to allocate purchase serial: %w", err)
	}

	return formatPurchaseSerial(userSerial, day, seq), nil
}

// formatPurchaseSerial собирает серийный номер покупки вида
// {userSerial}-CP-{YYYYMMDD}-{NNN}.
func formatPurchaseSerial(userSerial string, day time.Time, seq int) string {
	return fmt.Sprintf("%s-CP-%s-%03d", userSerial, day.Format("20060102"), seq)
}
