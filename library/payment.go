package library

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayLateFees settles the late fee owed on one book through the gateway.
// The amount is always recomputed here; a caller-supplied amount would go
// stale between assessment and charge. The record is not locked between
// assessment and the gateway call, so the charged amount can differ from a
// quote shown earlier.
func (lm *LibraryManager) PayLateFees(patronID string, bookID int64, gateway PaymentGateway) (*PaymentReceipt, error) {
	if !validPatronID(patronID) {
		return nil, ErrInvalidPatron
	}

	book, err := lm.db.GetBook(bookID)
	if err != nil {
		return nil, err
	}

	assessment := lm.LateFee(patronID, bookID)
	if !assessment.FeeAmount.IsPositive() {
		return nil, ErrNothingOwed
	}

	amount := assessment.FeeAmount.Round(2)
	description := fmt.Sprintf("Late fees for '%s'", book.Title)

	result, err := gateway.ProcessPayment(patronID, amount, description)
	if err != nil {
		lm.log.Error("payment gateway unreachable", "patron", patronID, "book", bookID, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}
	if !result.Accepted {
		return nil, &DeclinedError{Reason: result.Message}
	}

	lm.log.Info("late fees settled",
		"patron", patronID, "book", bookID,
		"amount", amount.StringFixed(2), "txn", result.TransactionID)

	return &PaymentReceipt{
		ReceiptID:     uuid.New(),
		TransactionID: result.TransactionID,
		Amount:        amount,
		Description:   description,
		PaidAt:        time.Now(),
	}, nil
}

// RefundLateFeePayment reverses a prior late fee charge. Malformed ids and
// out-of-range amounts are rejected before the gateway is involved; the fee
// cap bounds any legitimate refund.
func (lm *LibraryManager) RefundLateFeePayment(transactionID string, amount decimal.Decimal, gateway PaymentGateway) (*RefundReceipt, error) {
	if !wellFormedTransactionID(transactionID) {
		return nil, ErrInvalidTransaction
	}
	if !amount.IsPositive() || amount.GreaterThan(feeCap) {
		return nil, ErrInvalidAmount
	}

	result, err := gateway.RefundPayment(transactionID, amount)
	if err != nil {
		lm.log.Error("payment gateway unreachable", "txn", transactionID, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}
	if !result.Accepted {
		return nil, &RefundFailedError{Reason: result.Message}
	}

	lm.log.Info("late fee refunded", "txn", transactionID, "amount", amount.StringFixed(2))

	return &RefundReceipt{
		TransactionID: transactionID,
		Amount:        amount,
		Message:       result.Message,
	}, nil
}
