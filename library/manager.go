package library

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// LibraryManager is a thin façade over the Database, keeping CLI code simple.
type LibraryManager struct {
	db  *Database
	log *slog.Logger
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath.
func NewLibraryManager(dbPath string) (*LibraryManager, error) {
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	return &LibraryManager{db: db, log: slog.Default()}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// Store exposes the underlying database for seeding tools.
func (lm *LibraryManager) Store() *Database { return lm.db }

// ------------------ Catalog ------------------

const (
	maxTitleLen  = 200
	maxAuthorLen = 100
	isbnLen      = 13
)

// AddBook validates and inserts a new catalog entry. All copies start on
// the shelf.
func (lm *LibraryManager) AddBook(title, author, isbn string, totalCopies int) (int64, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)

	if title == "" {
		return 0, &ValidationError{Field: "title", Reason: "is required"}
	}
	if len(title) > maxTitleLen {
		return 0, &ValidationError{Field: "title", Reason: fmt.Sprintf("must be at most %d characters", maxTitleLen)}
	}
	if author == "" {
		return 0, &ValidationError{Field: "author", Reason: "is required"}
	}
	if len(author) > maxAuthorLen {
		return 0, &ValidationError{Field: "author", Reason: fmt.Sprintf("must be at most %d characters", maxAuthorLen)}
	}
	if !validISBN(isbn) {
		return 0, &ValidationError{Field: "isbn", Reason: "must be exactly 13 digits"}
	}
	if totalCopies <= 0 {
		return 0, &ValidationError{Field: "total_copies", Reason: "must be a positive integer"}
	}

	id, err := lm.db.InsertBook(title, author, isbn, totalCopies, totalCopies)
	if err != nil {
		return 0, err
	}
	lm.log.Info("book added", "id", id, "title", title, "copies", totalCopies)
	return id, nil
}

func (lm *LibraryManager) GetBook(id int64) (*Book, error) { return lm.db.GetBook(id) }
func (lm *LibraryManager) GetAllBooks() ([]*Book, error)   { return lm.db.GetAllBooks() }

// SearchBooks finds catalog entries. Title and author match on a
// case-insensitive substring; isbn requires an exact match. A blank term or
// an unknown search type yields no results rather than an error.
func (lm *LibraryManager) SearchBooks(term, searchType string) ([]*Book, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []*Book{}, nil
	}

	switch searchType {
	case "isbn":
		book, err := lm.db.GetBookByISBN(term)
		if errors.Is(err, ErrBookNotFound) {
			return []*Book{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []*Book{book}, nil
	case "title", "author":
		all, err := lm.db.GetAllBooks()
		if err != nil {
			return nil, err
		}
		needle := strings.ToLower(term)
		results := []*Book{}
		for _, b := range all {
			field := b.Title
			if searchType == "author" {
				field = b.Author
			}
			if strings.Contains(strings.ToLower(field), needle) {
				results = append(results, b)
			}
		}
		return results, nil
	default:
		return []*Book{}, nil
	}
}

// ------------------ Circulation ------------------

// Borrow lends a book to a patron for the standard loan period.
func (lm *LibraryManager) Borrow(patronID string, bookID int64) (*BorrowConfirmation, error) {
	if !validPatronID(patronID) {
		return nil, ErrInvalidPatron
	}

	book, err := lm.db.GetBook(bookID)
	if err != nil {
		return nil, err
	}

	record, err := lm.db.BorrowBook(patronID, bookID, time.Now())
	if err != nil {
		return nil, err
	}

	lm.log.Info("book borrowed", "patron", patronID, "book", bookID, "due", record.DueDate.Format("2006-01-02"))
	return &BorrowConfirmation{BookTitle: book.Title, DueDate: record.DueDate}, nil
}

// Return takes a book back, assessing the late fee against the loan's
// pre-return due date. Payment is a separate explicit step.
func (lm *LibraryManager) Return(patronID string, bookID int64) (*ReturnConfirmation, error) {
	if !validPatronID(patronID) {
		return nil, ErrInvalidPatron
	}

	book, err := lm.db.GetBook(bookID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record, err := lm.db.ReturnBookRecord(patronID, bookID, now)
	if err != nil {
		return nil, err
	}

	assessment := AssessFee(record.DueDate, now)
	lm.log.Info("book returned",
		"patron", patronID, "book", bookID,
		"days_overdue", assessment.DaysOverdue, "fee", assessment.FeeAmount.StringFixed(2))

	return &ReturnConfirmation{
		BookTitle:   book.Title,
		AmountDue:   assessment.FeeAmount.Round(2),
		DaysOverdue: assessment.DaysOverdue,
	}, nil
}

// LateFee assesses the current fee for one (patron, book) pair. Unknown
// patrons and missing loans produce a tagged zero assessment, not an error.
func (lm *LibraryManager) LateFee(patronID string, bookID int64) FeeAssessment {
	if !validPatronID(patronID) {
		return FeeAssessment{FeeAmount: decimal.Zero, Status: FeeStatusInvalidPatron}
	}

	record, err := lm.db.ActiveBorrowRecord(patronID, bookID)
	if err != nil {
		return FeeAssessment{FeeAmount: decimal.Zero, Status: FeeStatusNoRecord}
	}

	return AssessFee(record.DueDate, time.Now())
}

// ------------------ Patron status ------------------

// PatronStatus builds the front desk report: open loans with their fees,
// the fee total, and the full borrowing history.
func (lm *LibraryManager) PatronStatus(patronID string) (*PatronStatus, error) {
	if !validPatronID(patronID) {
		return nil, ErrInvalidPatron
	}

	active, err := lm.db.ActiveBorrowRecords(patronID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	status := &PatronStatus{
		PatronID:          patronID,
		CurrentlyBorrowed: len(active),
		BorrowedBooks:     []BorrowedBookStatus{},
		TotalLateFees:     decimal.Zero,
		History:           []HistoryEntry{},
	}

	for _, r := range active {
		book, err := lm.db.GetBook(r.BookID)
		if err != nil {
			return nil, err
		}
		fee := AssessFee(r.DueDate, now).FeeAmount
		status.BorrowedBooks = append(status.BorrowedBooks, BorrowedBookStatus{
			Book:       book,
			BorrowDate: r.BorrowDate,
			DueDate:    r.DueDate,
			LateFee:    fee,
		})
		status.TotalLateFees = status.TotalLateFees.Add(fee)
	}

	history, err := lm.db.BorrowHistory(patronID)
	if err != nil {
		return nil, err
	}
	for _, r := range history {
		book, err := lm.db.GetBook(r.BookID)
		if err != nil {
			return nil, err
		}
		entryStatus := "Currently Borrowed"
		if r.ReturnDate != nil {
			entryStatus = "Returned"
		}
		status.History = append(status.History, HistoryEntry{
			BookID:     r.BookID,
			Title:      book.Title,
			Author:     book.Author,
			BorrowDate: r.BorrowDate,
			DueDate:    r.DueDate,
			ReturnDate: r.ReturnDate,
			Status:     entryStatus,
		})
	}

	return status, nil
}

// ------------------ Patron accounts ------------------

// RegisterPatron creates a card holder account. The card number doubles as
// the patron id used by circulation; circulation itself only checks format.
func (lm *LibraryManager) RegisterPatron(cardNumber, name, password string) (int64, error) {
	if !validPatronID(cardNumber) {
		return 0, ErrInvalidPatron
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, &ValidationError{Field: "name", Reason: "is required"}
	}
	if len(password) < 4 {
		return 0, &ValidationError{Field: "password", Reason: "must be at least 4 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	return lm.db.AddPatron(cardNumber, name, string(hash))
}

// AuthenticatePatron verifies a card holder's password.
func (lm *LibraryManager) AuthenticatePatron(cardNumber, password string) error {
	patron, err := lm.db.GetPatronByCard(cardNumber)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(patron.PasswordHash), []byte(password)) != nil {
		return ErrBadCredentials
	}
	return nil
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b *Book) string {
	return fmt.Sprintf("%-5d %-30s %-25s %-15s %d/%d", b.ID, b.Title, b.Author, b.ISBN, b.AvailableCopies, b.TotalCopies)
}

func validISBN(isbn string) bool {
	if len(isbn) != isbnLen {
		return false
	}
	for _, c := range isbn {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
