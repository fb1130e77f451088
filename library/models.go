package library

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Book represents one catalog entry with its current availability.
type Book struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
}

// BorrowRecord is one loan of a book to a patron. A record with a nil
// ReturnDate is active; re-borrowing after a return creates a new record.
type BorrowRecord struct {
	ID         int64      `json:"id"`
	PatronID   string     `json:"patron_id"`
	BookID     int64      `json:"book_id"`
	BorrowDate time.Time  `json:"borrow_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
}

// Active reports whether the book is still out.
func (r *BorrowRecord) Active() bool { return r.ReturnDate == nil }

// Patron is a registered library card holder.
type Patron struct {
	ID           int64  `json:"id"`
	CardNumber   string `json:"card_number"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"` // Don't serialize password hash
}

// FeeStatus tags the outcome of a fee assessment.
type FeeStatus string

const (
	FeeStatusSuccess       FeeStatus = "success"
	FeeStatusInvalidPatron FeeStatus = "invalid-patron"
	FeeStatusNoRecord      FeeStatus = "no-record"
)

// FeeAssessment is a point-in-time late fee computation. It is derived from
// a record's due date and "now" and never persisted, so re-assessing after
// time passes yields a different result.
type FeeAssessment struct {
	FeeAmount   decimal.Decimal `json:"fee_amount"`
	DaysOverdue int             `json:"days_overdue"`
	Status      FeeStatus       `json:"status"`
}

// BorrowConfirmation is returned on a successful borrow.
type BorrowConfirmation struct {
	BookTitle string    `json:"book_title"`
	DueDate   time.Time `json:"due_date"`
}

// FormattedDueDate renders the due date the way patrons see it on a slip.
func (c BorrowConfirmation) FormattedDueDate() string {
	return c.DueDate.Format("2006-01-02")
}

// ReturnConfirmation is returned on a successful return. AmountDue is the
// late fee assessed at return time; payment is a separate explicit step.
type ReturnConfirmation struct {
	BookTitle   string          `json:"book_title"`
	AmountDue   decimal.Decimal `json:"amount_due"`
	DaysOverdue int             `json:"days_overdue"`
}

// PaymentReceipt is issued when the gateway accepts a late fee payment.
type PaymentReceipt struct {
	ReceiptID     uuid.UUID       `json:"receipt_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	PaidAt        time.Time       `json:"paid_at"`
}

// RefundReceipt is issued when the gateway accepts a refund.
type RefundReceipt struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Message       string          `json:"message"`
}

// BorrowedBookStatus pairs an active loan with its current fee assessment.
type BorrowedBookStatus struct {
	Book       *Book           `json:"book"`
	BorrowDate time.Time       `json:"borrow_date"`
	DueDate    time.Time       `json:"due_date"`
	LateFee    decimal.Decimal `json:"late_fee"`
}

// HistoryEntry is one row of a patron's full borrowing history.
type HistoryEntry struct {
	BookID     int64      `json:"book_id"`
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	BorrowDate time.Time  `json:"borrow_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Status     string     `json:"status"` // "Returned" or "Currently Borrowed"
}

// PatronStatus aggregates everything a front desk needs about one patron.
type PatronStatus struct {
	PatronID          string               `json:"patron_id"`
	CurrentlyBorrowed int                  `json:"currently_borrowed"`
	BorrowedBooks     []BorrowedBookStatus `json:"borrowed_books"`
	TotalLateFees     decimal.Decimal      `json:"total_late_fees"`
	History           []HistoryEntry       `json:"borrowing_history"`
}
