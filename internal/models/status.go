package models

import "fmt"

// PurchaseStatus представляет статус покупки
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusReceived  PurchaseStatus = "received"
	PurchaseStatusConfirmed PurchaseStatus = "confirmed"
	PurchaseStatusReturned  PurchaseStatus = "returned"
)

// StatusAction представляет действие над статусом покупки
type StatusAction string

const (
	ActionReceive StatusAction = "receive"
	ActionConfirm StatusAction = "confirm"
	ActionReturn  StatusAction = "return"
)

// NextStatus возвращает новый статус покупки для действия или ошибку с
// причиной отказа. Единственная точка, где разрешены переходы:
//
//	pending  -> received   (receive)
//	received -> confirmed  (confirm)
//	returned -> confirmed  (confirm, повторное подтверждение после возврата)
//	confirmed -> returned  (return)
//
// Повторное подтверждение уже подтверждённой покупки запрещено.
func NextStatus(current PurchaseStatus, action StatusAction) (PurchaseStatus, error) {
	switch action {
	case ActionReceive:
		if current != PurchaseStatusPending {
			return "", fmt.Errorf("purchase must be pending before it can be received, current status is %q", current)
		}
		return PurchaseStatusReceived, nil
	case ActionConfirm:
		if current == PurchaseStatusConfirmed {
			return "", fmt.Errorf("purchase is already confirmed")
		}
		if current != PurchaseStatusReceived && current != PurchaseStatusReturned {
			return "", fmt.Errorf("purchase must be received or in returned status before it can be confirmed")
		}
		return PurchaseStatusConfirmed, nil
	case ActionReturn:
		if current != PurchaseStatusConfirmed {
			return "", fmt.Errorf("only confirmed purchases can be returned, current status is %q", current)
		}
		return PurchaseStatusReturned, nil
	default:
		return "", fmt.Errorf("unknown status action %q", action)
	}
}

// IsValidPurchaseStatus проверяет, что строка является известным статусом.
func IsValidPurchaseStatus(s PurchaseStatus) bool {
	switch s {
	case PurchaseStatusPending, PurchaseStatusReceived, PurchaseStatusConfirmed, PurchaseStatusReturned:
		return true
	default:
		return false
	}
}
