package services

import (
	"context"
	"testing"
	"time"

	"store-system/internal/apperror"
	"store-system/internal/config"
	"store-system/internal/database"
	"store-system/internal/logger"
	"store-system/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func newTestLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "debug", Format: "json"})
}

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	return &database.DB{DB: db}, mock
}

func newTestPurchaseService(db *database.DB) *PurchaseService {
	log := newTestLogger()
	coupons := NewCouponService(db, log)
	carts := NewCartService(db, nil, log, coupons)
	users := NewUserService(db, log, time.UTC)
	payments := NewPaymentMethodService(db, log)
	cfg := &config.BusinessConfig{Timezone: "UTC", OpenHour: 9, CloseHour: 21, CheckoutCooldownSeconds: 30}

	return NewPurchaseService(db, nil, log, carts, coupons, users, payments, nil, cfg, time.UTC)
}

var purchaseCols = []string{
	"id", "serial", "user_id", "status", "subtotal", "discount", "total",
	"coupon_code", "payment_method_id", "transferred_from", "payment_screenshot",
	"received_by", "received_at", "confirmed_by", "confirmed_at",
	"returned_by", "returned_at", "admin_notes", "admin_note_by",
	"created_at", "updated_at",
}

var purchaseItemCols = []string{
	"id", "purchase_id", "product_id", "product_type", "title", "thumbnail",
	"section", "product_serial", "price", "name_on_book", "number_on_book", "series_name",
}

func purchaseRow(id uuid.UUID, userID uuid.UUID, status models.PurchaseStatus) *sqlmock.Rows {
	return sqlmock.NewRows(purchaseCols).AddRow(
		id, "U1-CP-20260101-001", userID, status, 40.0, 0.0, 40.0,
		nil, nil, nil, nil,
		nil, nil, nil, nil,
		nil, nil, nil, nil,
		time.Now().Add(-time.Hour), time.Now().Add(-time.Hour),
	)
}

func expectGetUser(mock sqlmock.Sqlmock, userID uuid.UUID) {
	mock.ExpectQuery("FROM users").
		WithArgs(userID).
		WillReturnRows(userRow(userID, models.UserRoleCustomer, 0, nil))
}

func expectNoCooldown(mock sqlmock.Sqlmock, userID uuid.UUID) {
	mock.ExpectQuery("SELECT created_at FROM purchases").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
}

func TestPurchaseService_Create_Success(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newTestPurchaseService(db)

	userID := uuid.New()
	cartID := uuid.New()
	methodID := uuid.New()
	transferredFrom := "111222333"
	screenshot := "uploads/screenshot.png"

	expectGetUser(mock, userID)
	expectNoCooldown(mock, userID)

	mock.ExpectQuery("FROM carts").WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "coupon_code", "subtotal", "discount", "total", "total_items", "created_at", "updated_at"}).
			AddRow(cartID, userID, nil, 40.0, 0.0, 40.0, 1, time.Now(), time.Now()))
	mock.ExpectQuery("FROM cart_items").WithArgs(cartID).
		WillReturnRows(emptyItemRows().
			AddRow(uuid.New(), cartID, uuid.New(), models.ProductTypeGeneric, "Mug", nil, nil, nil, 40.0, time.Now()))

	mock.ExpectQuery("FROM payment_methods").WithArgs(methodID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "number", "active", "created_at"}).
			AddRow(methodID, "Bank", "999888777", true, time.Now()))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO purchase_serials").
		WithArgs("U1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(1))
	mock.ExpectExec("INSERT INTO purchases").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO purchase_items").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM cart_items").
		WithArgs(cartID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE carts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectExec("UPDATE users").
		WithArgs(1, 40.0, sqlmock.AnyArg(), userID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := &models.CreateCartPurchaseRequest{
		PaymentMethodID:   &methodID,
		TransferredFrom:   &transferredFrom,
		PaymentScreenshot: &screenshot,
	}

	purchase, err := service.CreateCartPurchase(context.Background(), userID, req)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	wantSerial := formatPurchaseSerial("U1", time.Now().UTC(), 1)
	if purchase.Serial != wantSerial {
		t.Fatalf("expected serial %s, got %s", wantSerial, purchase.Serial)
	}
	if purchase.Status != models.PurchaseStatusPending {
		t.Fatalf("expected pending status, got %s", purchase.Status)
	}
	if purchase.Total != 40.0 {
		t.Fatalf("expected total 40.0, got %.2f", purchase.Total)
	}
	if len(purchase.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(purchase.Items))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPurchaseService_Create_CooldownRejected(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newTestPurchaseService(db)

	userID := uuid.New()

	expectGetUser(mock, userID)

	mock.ExpectQuery("SELECT created_at FROM purchases").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now().Add(-5 * time.Second)))

	_, err := service.CreateCartPurchase(context.Background(), userID, nil)
	if !apperror.Is(err, apperror.KindRateLimited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}
}

func TestPurchaseService_Create_EmptyCart(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newTestPurchaseService(db)

	userID := uuid.New()
	cartID := uuid.New()

	expectGetUser(mock, userID)
	expectNoCooldown(mock, userID)

	mock.ExpectQuery("FROM carts").WithArgs(userID).WillReturnRows(cartRow(cartID, userID))
	mock.ExpectQuery("FROM cart_items").WithArgs(cartID).WillReturnRows(emptyItemRows())

	_, err := service.CreateCartPurchase(context.Background(), userID, nil)
	if !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPurchaseService_Create_BookFieldsRequired(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newTestPurchaseService(db)

	userID := uuid.New()
	cartID := uuid.New()

	expectGetUser(mock, userID)
	expectNoCooldown(mock, userID)

	mock.ExpectQuery("FROM carts").WithArgs(userID).WillReturnRows(cartRow(cartID, userID))
	mock.ExpectQuery("FROM cart_items").WithArgs(cartID).
		WillReturnRows(emptyItemRows().
			AddRow(uuid.New(), cartID, uuid.New(), models.ProductTypeBook, "Atlas", nil, nil, nil, 25.0, time.Now()))

	_, err := service.CreateCartPurchase(context.Background(), userID, nil)
	if !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPurchaseService_Create_TransferredFromMatchesMethod(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newTestPurchaseService(db)

	userID := uuid.New()
	cartID := uuid.New()
	methodID := uuid.New()
	number := "999888777"
	screenshot := "uploads/s.png"

	expectGetUser(mock, userID)
	expectNoCooldown(mock, userID)

	mock.ExpectQuery("FROM carts").WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "coupon_code", "subtotal", "discount", "total", "total_items", "created_at", "updated_at"}).
			AddRow(cartID, userID, nil, 40.0, 0.0, 40.0, 1, time.Now(), time.Now()))
	mock.ExpectQuery("FROM cart_items").WithArgs(cartID).
		WillReturnRows(emptyItemRows().
			AddRow(uuid.New(), cartID, uuid.New(), models.ProductTypeGeneric, "Mug", nil, nil, nil, 40.0, time.Now()))

	mock.ExpectQuery("FROM payment_methods").WithArgs(methodID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "number", "active", "created_at"}).
			AddRow(methodID, "Bank", number, true, time.Now()))

	req := &models.CreateCartPurchaseRequest{
		PaymentMethodID:   &methodID,
		TransferredFrom:   &number,
		PaymentScreenshot: &screenshot,
	}

	_, err := service.CreateCartPurchase(context.Background(), userID, req)
	if !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPurchaseService_Receive_Success(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newTestPurchaseService(db)

	purchaseID := uuid.New()
	actorID := uuid.New()
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM purchases").
		WithArgs(purchaseID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.PurchaseStatusPending))
	mock.ExpectExec("UPDATE purchases").
		WithArgs(models.PurchaseStatusReceived, actorID, sqlmock.AnyArg(), purchaseID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery("FROM purchases").
		WithArgs(purchaseID).
		WillReturnRows(purchaseRow(purchaseID, userID, models.PurchaseStatusReceived))
	mock.ExpectQuery("FROM purchase_items").
		WithArgs(purchaseID).
		WillReturnRows(sqlmock.NewRows(purchaseItemCols))

	purchase, err := service.ReceivePurchase(context.Background(), purchaseID, actorID)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if purchase.Status != models.PurchaseStatusReceived {
		t.Fatalf("expected received status, got %s", purchase.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPurchaseService_Receive_WrongStatus(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newTestPurchaseService(db)

	purchaseID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM purchases").
		WithArgs(purchaseID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.PurchaseStatusConfirmed))
	mock.ExpectRollback()

	_, err := service.ReceivePurchase(context.Background(), purchaseID, uuid.New())
	if !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestPurchaseService_Confirm_RecomputesMonthlyCount(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newTestPurchaseService(db)

	purchaseID := uuid.New()
	actorID := uuid.New()
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM purchases").
		WithArgs(purchaseID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.PurchaseStatusReceived))
	mock.ExpectExec("UPDATE purchases").
		WithArgs(models.PurchaseStatusConfirmed, actorID, sqlmock.AnyArg(), purchaseID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery("FROM purchases").
		WithArgs(purchaseID).
		WillReturnRows(purchaseRow(purchaseID, userID, models.PurchaseStatusConfirmed))
	mock.ExpectQuery("FROM purchase_items").
		WithArgs(purchaseID).
		WillReturnRows(sqlmock.NewRows(purchaseItemCols))

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(actorID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec("UPDATE users").
		WithArgs(3, sqlmock.AnyArg(), actorID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	purchase, err := service.ConfirmPurchase(context.Background(), purchaseID, actorID)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if purchase.Status != models.PurchaseStatusConfirmed {
		t.Fatalf("expected confirmed status, got %s", purchase.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPurchaseService_Confirm_AlreadyConfirmed(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newTestPurchaseService(db)

	purchaseID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM purchases").
		WithArgs(purchaseID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.PurchaseStatusConfirmed))
	mock.ExpectRollback()

	_, err := service.ConfirmPurchase(context.Background(), purchaseID, uuid.New())
	if !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestPurchaseService_Return_OnlyFromConfirmed(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newTestPurchaseService(db)

	purchaseID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM purchases").
		WithArgs(purchaseID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.PurchaseStatusPending))
	mock.ExpectRollback()

	_, err := service.ReturnPurchase(context.Background(), purchaseID, uuid.New())
	if !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestPurchaseService_Delete_ConfirmedCompensations(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newTestPurchaseService(db)

	purchaseID := uuid.New()
	userID := uuid.New()
	staffID := uuid.New()
	couponCode := "WELCOME50"

	confirmedAt := time.Now().Add(-time.Hour)
	mock.ExpectQuery("FROM purchases").
		WithArgs(purchaseID).
		WillReturnRows(sqlmock.NewRows(purchaseCols).AddRow(
			purchaseID, "U1-CP-20260101-001", userID, models.PurchaseStatusConfirmed, 90.0, 50.0, 40.0,
			couponCode, nil, nil, nil,
			staffID, confirmedAt, staffID, confirmedAt,
			nil, nil, nil, nil,
			time.Now().Add(-2*time.Hour), confirmedAt,
		))
	mock.ExpectQuery("FROM purchase_items").
		WithArgs(purchaseID).
		WillReturnRows(sqlmock.NewRows(purchaseItemCols))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM purchase_items").
		WithArgs(purchaseID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM purchases").
		WithArgs(purchaseID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Компенсации: откат счётчиков, реактивация купона, пересчёт у сотрудника.
	mock.ExpectExec("UPDATE users").
		WithArgs(-1, -40.0, sqlmock.AnyArg(), userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE coupons").
		WithArgs(sqlmock.AnyArg(), couponCode).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(staffID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("UPDATE users").
		WithArgs(2, sqlmock.AnyArg(), staffID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := service.DeletePurchase(context.Background(), purchaseID); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPurchaseService_AdminList_SerialSearch(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newTestPurchaseService(db)

	purchaseID := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("%CP-20260101%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("FROM purchases").
		WithArgs("%CP-20260101%", 20, 0).
		WillReturnRows(purchaseRow(purchaseID, userID, models.PurchaseStatusPending))

	list, err := service.AdminList(context.Background(), &models.AdminPurchaseFilter{Search: "CP-20260101"})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if list.Total != 1 || len(list.Purchases) != 1 {
		t.Fatalf("expected one purchase, got total=%d len=%d", list.Total, len(list.Purchases))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPurchaseService_AdminList_UUIDFastPath(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newTestPurchaseService(db)

	purchaseID := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(purchaseID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("FROM purchases").
		WithArgs(purchaseID, 20, 0).
		WillReturnRows(purchaseRow(purchaseID, userID, models.PurchaseStatusPending))

	list, err := service.AdminList(context.Background(), &models.AdminPurchaseFilter{Search: purchaseID.String()})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if list.Total != 1 {
		t.Fatalf("expected total 1, got %d", list.Total)
	}
}
