package library

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddBookValidation(t *testing.T) {
	mgr := newTestManager(t)

	testCases := []struct {
		name   string
		title  string
		author string
		isbn   string
		copies int
	}{
		{"blank title", "   ", "Author", "9781111111111", 1},
		{"title too long", strings.Repeat("x", 201), "Author", "9781111111111", 1},
		{"blank author", "Title", "", "9781111111111", 1},
		{"author too long", "Title", strings.Repeat("x", 101), "9781111111111", 1},
		{"short isbn", "Title", "Author", "97811111", 1},
		{"non-numeric isbn", "Title", "Author", "978111111111x", 1},
		{"zero copies", "Title", "Author", "9781111111111", 0},
		{"negative copies", "Title", "Author", "9781111111111", -3},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mgr.AddBook(tt.title, tt.author, tt.isbn, tt.copies)
			require.Error(t, err)
			assert.Equal(t, KindValidation, Classify(err))
		})
	}

	// Nothing reached the store.
	books, err := mgr.GetAllBooks()
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestAddBookTrimsAndStores(t *testing.T) {
	mgr := newTestManager(t)

	id, err := mgr.AddBook("  The Stand  ", " Stephen King ", "9780385121682", 4)
	require.NoError(t, err)

	book, err := mgr.GetBook(id)
	require.NoError(t, err)
	assert.Equal(t, "The Stand", book.Title)
	assert.Equal(t, "Stephen King", book.Author)
	assert.Equal(t, 4, book.AvailableCopies)

	_, err = mgr.AddBook("Other", "Author", "9780385121682", 1)
	assert.ErrorIs(t, err, ErrDuplicateISBN)
}

func TestSearchBooks(t *testing.T) {
	mgr := newTestManager(t)

	_, err := mgr.AddBook("The Go Programming Language", "Alan Donovan", "9780134190440", 2)
	require.NoError(t, err)
	_, err = mgr.AddBook("Programming Pearls", "Jon Bentley", "9780201657883", 1)
	require.NoError(t, err)

	byTitle, err := mgr.SearchBooks("programming", "title")
	require.NoError(t, err)
	assert.Len(t, byTitle, 2)

	byAuthor, err := mgr.SearchBooks("donovan", "author")
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "The Go Programming Language", byAuthor[0].Title)

	byISBN, err := mgr.SearchBooks("9780201657883", "isbn")
	require.NoError(t, err)
	require.Len(t, byISBN, 1)
	assert.Equal(t, "Programming Pearls", byISBN[0].Title)

	missing, err := mgr.SearchBooks("9999999999999", "isbn")
	require.NoError(t, err)
	assert.Empty(t, missing)

	blank, err := mgr.SearchBooks("   ", "title")
	require.NoError(t, err)
	assert.Empty(t, blank)

	unknownType, err := mgr.SearchBooks("go", "publisher")
	require.NoError(t, err)
	assert.Empty(t, unknownType)
}

func TestBorrowReturnRoundTrip(t *testing.T) {
	mgr := newTestManager(t)

	bookID, err := mgr.AddBook("Round Trip", "Author", "9781111111111", 3)
	require.NoError(t, err)

	conf, err := mgr.Borrow("123456", bookID)
	require.NoError(t, err)
	assert.Equal(t, "Round Trip", conf.BookTitle)
	assert.Equal(t, conf.DueDate.Format("2006-01-02"), conf.FormattedDueDate())

	book, err := mgr.GetBook(bookID)
	require.NoError(t, err)
	assert.Equal(t, 2, book.AvailableCopies)

	// Immediate return: no fee, availability restored.
	ret, err := mgr.Return("123456", bookID)
	require.NoError(t, err)
	assert.Equal(t, "Round Trip", ret.BookTitle)
	assert.True(t, ret.AmountDue.IsZero())
	assert.Equal(t, 0, ret.DaysOverdue)

	book, err = mgr.GetBook(bookID)
	require.NoError(t, err)
	assert.Equal(t, 3, book.AvailableCopies)
}

func TestBorrowInvalidPatron(t *testing.T) {
	mgr := newTestManager(t)

	for _, id := range []string{"", "12345", "1234567", "12345x"} {
		_, err := mgr.Borrow(id, 1)
		assert.ErrorIs(t, err, ErrInvalidPatron, "patron %q", id)
		_, err = mgr.Return(id, 1)
		assert.ErrorIs(t, err, ErrInvalidPatron, "patron %q", id)
	}
}

func TestReturnReportsAmountDue(t *testing.T) {
	mgr := newTestManager(t)
	bookID := overdueLoan(t, mgr, "123456", 10)

	ret, err := mgr.Return("123456", bookID)
	require.NoError(t, err)
	assert.Equal(t, 10, ret.DaysOverdue)
	assert.True(t, ret.AmountDue.Equal(decimal.RequireFromString("6.50")),
		"amount due %s", ret.AmountDue)
}

func TestLateFeeStatuses(t *testing.T) {
	mgr := newTestManager(t)

	a := mgr.LateFee("12345", 1)
	assert.Equal(t, FeeStatusInvalidPatron, a.Status)
	assert.True(t, a.FeeAmount.IsZero())

	a = mgr.LateFee("123456", 1)
	assert.Equal(t, FeeStatusNoRecord, a.Status)
	assert.True(t, a.FeeAmount.IsZero())

	bookID := overdueLoan(t, mgr, "123456", 3)
	a = mgr.LateFee("123456", bookID)
	assert.Equal(t, FeeStatusSuccess, a.Status)
	assert.True(t, a.FeeAmount.Equal(decimal.RequireFromString("1.50")))
}

func TestPatronStatusReport(t *testing.T) {
	mgr := newTestManager(t)

	book1, err := mgr.AddBook("First", "Author A", "9781111111111", 1)
	require.NoError(t, err)
	book2, err := mgr.AddBook("Second", "Author B", "9782222222222", 1)
	require.NoError(t, err)

	_, err = mgr.Borrow("123456", book1)
	require.NoError(t, err)
	_, err = mgr.Borrow("123456", book2)
	require.NoError(t, err)
	_, err = mgr.Return("123456", book1)
	require.NoError(t, err)

	status, err := mgr.PatronStatus("123456")
	require.NoError(t, err)
	assert.Equal(t, "123456", status.PatronID)
	assert.Equal(t, 1, status.CurrentlyBorrowed)
	require.Len(t, status.BorrowedBooks, 1)
	assert.Equal(t, "Second", status.BorrowedBooks[0].Book.Title)
	assert.True(t, status.TotalLateFees.IsZero())

	require.Len(t, status.History, 2)
	assert.Equal(t, "Returned", status.History[0].Status)
	assert.Equal(t, "Currently Borrowed", status.History[1].Status)

	// Repeated reads with no intervening mutation agree.
	again, err := mgr.PatronStatus("123456")
	require.NoError(t, err)
	assert.Equal(t, status.CurrentlyBorrowed, again.CurrentlyBorrowed)
	assert.Equal(t, len(status.History), len(again.History))
	assert.True(t, status.TotalLateFees.Equal(again.TotalLateFees))

	_, err = mgr.PatronStatus("12345")
	assert.ErrorIs(t, err, ErrInvalidPatron)
}

func TestPatronStatusTotalsFees(t *testing.T) {
	mgr := newTestManager(t)

	book1, err := mgr.AddBook("Late One", "Author", "9781111111111", 1)
	require.NoError(t, err)
	book2, err := mgr.AddBook("Late Two", "Author", "9782222222222", 1)
	require.NoError(t, err)

	now := time.Now()
	// One loan 3 days overdue (1.50), one 10 days overdue (6.50).
	due1 := now.Add(-3*24*time.Hour - time.Minute)
	due2 := now.Add(-10*24*time.Hour - time.Minute)
	require.NoError(t, mgr.Store().InsertBorrowRecord("123456", book1, due1.Add(-loanPeriod), due1))
	require.NoError(t, mgr.Store().InsertBorrowRecord("123456", book2, due2.Add(-loanPeriod), due2))

	status, err := mgr.PatronStatus("123456")
	require.NoError(t, err)
	assert.Equal(t, 2, status.CurrentlyBorrowed)
	assert.True(t, status.TotalLateFees.Equal(decimal.RequireFromString("8.00")),
		"total fees %s", status.TotalLateFees)
}

func TestRegisterAndAuthenticatePatron(t *testing.T) {
	mgr := newTestManager(t)

	_, err := mgr.RegisterPatron("12345", "Alice", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidPatron)

	_, err = mgr.RegisterPatron("123456", "  ", "hunter22")
	assert.Equal(t, KindValidation, Classify(err))

	_, err = mgr.RegisterPatron("123456", "Alice", "abc")
	assert.Equal(t, KindValidation, Classify(err))

	id, err := mgr.RegisterPatron("123456", "Alice", "hunter22")
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	_, err = mgr.RegisterPatron("123456", "Someone Else", "password")
	assert.ErrorIs(t, err, ErrDuplicateCard)

	assert.NoError(t, mgr.AuthenticatePatron("123456", "hunter22"))
	assert.ErrorIs(t, mgr.AuthenticatePatron("123456", "wrong"), ErrBadCredentials)
	assert.ErrorIs(t, mgr.AuthenticatePatron("999999", "hunter22"), ErrBadCredentials)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindValidation, Classify(ErrInvalidPatron))
	assert.Equal(t, KindValidation, Classify(&ValidationError{Field: "title", Reason: "is required"}))
	assert.Equal(t, KindNotFound, Classify(ErrBookNotFound))
	assert.Equal(t, KindConflict, Classify(ErrUnavailable))
	assert.Equal(t, KindConflict, Classify(ErrLimitReached))
	assert.Equal(t, KindConflict, Classify(ErrNotBorrowed))
	assert.Equal(t, KindConflict, Classify(ErrNothingOwed))
	assert.Equal(t, KindExternal, Classify(ErrGatewayUnavailable))
	assert.Equal(t, KindExternal, Classify(&DeclinedError{Reason: "Insufficient funds"}))
	assert.Equal(t, KindExternal, Classify(&RefundFailedError{Reason: "Already refunded"}))
}
