package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestFormatPurchaseSerial(t *testing.T) {
	day := time.Date(2026, 1, 5, 15, 30, 0, 0, time.UTC)

	cases := map[int]string{
		1:   "U42-CP-20260105-001",
		37:  "U42-CP-20260105-037",
		999: "U42-CP-20260105-999",
	}

	for seq, want := range cases {
		if got := formatPurchaseSerial("U42", day, seq); got != want {
			t.Fatalf("seq %d: expected %s, got %s", seq, want, got)
		}
	}
}

func TestAllocatePurchaseSerial_SequenceAdvances(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	day := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO purchase_serials").
		WithArgs("U42", "2026-01-05").
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(1))
	mock.ExpectQuery("INSERT INTO purchase_serials").
		WithArgs("U42", "2026-01-05").
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(2))
	mock.ExpectCommit()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("failed to begin tx: %v", err)
	}

	first, err := allocatePurchaseSerial(context.Background(), tx, "U42", day)
	if err != nil {
		t.Fatalf("first allocation failed: %v", err)
	}
	second, err := allocatePurchaseSerial(context.Background(), tx, "U42", day)
	if err != nil {
		t.Fatalf("second allocation failed: %v", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	if first != "U42-CP-20260105-001" || second != "U42-CP-20260105-002" {
		t.Fatalf("unexpected serials: %s, %s", first, second)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
