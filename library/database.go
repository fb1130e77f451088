package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Database provides high-level helpers around a SQLite connection.
type Database struct {
	db *sql.DB

	addBookStmt   *sql.Stmt
	addPatronStmt *sql.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.addBookStmt != nil {
		d.addBookStmt.Close()
	}
	if d.addPatronStmt != nil {
		d.addPatronStmt.Close()
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            isbn TEXT NOT NULL UNIQUE,
            total_copies INTEGER NOT NULL,
            available_copies INTEGER NOT NULL,
            CHECK (available_copies >= 0 AND available_copies <= total_copies)
        );`,
		`CREATE TABLE IF NOT EXISTS borrow_records (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            patron_id TEXT NOT NULL,
            book_id INTEGER NOT NULL REFERENCES books(id),
            borrow_date DATETIME NOT NULL,
            due_date DATETIME NOT NULL,
            return_date DATETIME
        );`,
		`CREATE INDEX IF NOT EXISTS idx_borrow_records_patron
            ON borrow_records(patron_id, return_date);`,
		`CREATE TABLE IF NOT EXISTS patrons (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            card_number TEXT NOT NULL UNIQUE,
            name TEXT NOT NULL,
            password_hash TEXT NOT NULL
        );`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.addBookStmt, err = d.db.Prepare(`INSERT INTO books(title,author,isbn,total_copies,available_copies) VALUES(?,?,?,?,?)`); err != nil {
		return err
	}
	if d.addPatronStmt, err = d.db.Prepare(`INSERT INTO patrons(card_number,name,password_hash) VALUES(?,?,?)`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

// InsertBook adds a catalog row. Availability starts at available.
func (d *Database) InsertBook(title, author, isbn string, total, available int) (int64, error) {
	res, err := d.addBookStmt.Exec(title, author, isbn, total, available)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrDuplicateISBN
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (d *Database) GetBook(id int64) (*Book, error) {
	var b Book
	err := d.db.QueryRow(`SELECT id,title,author,isbn,total_copies,available_copies FROM books WHERE id=?`, id).
		Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.TotalCopies, &b.AvailableCopies)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (d *Database) GetBookByISBN(isbn string) (*Book, error) {
	var b Book
	err := d.db.QueryRow(`SELECT id,title,author,isbn,total_copies,available_copies FROM books WHERE isbn=?`, isbn).
		Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.TotalCopies, &b.AvailableCopies)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetAllBooks returns the full catalog ordered by id.
func (d *Database) GetAllBooks() ([]*Book, error) {
	rows, err := d.db.Query(`SELECT id,title,author,isbn,total_copies,available_copies FROM books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.TotalCopies, &b.AvailableCopies); err != nil {
			return nil, err
		}
		books = append(books, &b)
	}
	return books, rows.Err()
}

// AdjustAvailability applies delta to available_copies, refusing to move the
// count below zero or above total_copies.
func (d *Database) AdjustAvailability(bookID int64, delta int) error {
	res, err := d.db.Exec(`UPDATE books SET available_copies=available_copies+?
        WHERE id=? AND available_copies+? BETWEEN 0 AND total_copies`, delta, bookID, delta)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("availability adjustment of %+d rejected for book %d", delta, bookID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Borrow records
// ---------------------------------------------------------------------------

// InsertBorrowRecord writes a loan row directly, outside any transaction.
// Circulation goes through BorrowBook; this exists for seeding and backdating.
func (d *Database) InsertBorrowRecord(patronID string, bookID int64, borrowDate, dueDate time.Time) error {
	_, err := d.db.Exec(`INSERT INTO borrow_records(patron_id,book_id,borrow_date,due_date) VALUES(?,?,?,?)`,
		patronID, bookID, borrowDate, dueDate)
	return err
}

// SetReturnDate closes the active loan for (patron, book), if any.
func (d *Database) SetReturnDate(patronID string, bookID int64, returnDate time.Time) error {
	res, err := d.db.Exec(`UPDATE borrow_records SET return_date=?
        WHERE patron_id=? AND book_id=? AND return_date IS NULL`, returnDate, patronID, bookID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotBorrowed
	}
	return nil
}

// ActiveBorrowCount counts the patron's loans that are still out.
func (d *Database) ActiveBorrowCount(patronID string) (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM borrow_records WHERE patron_id=? AND return_date IS NULL`, patronID).Scan(&n)
	return n, err
}

// ActiveBorrowRecords returns the patron's open loans ordered by borrow date.
func (d *Database) ActiveBorrowRecords(patronID string) ([]*BorrowRecord, error) {
	rows, err := d.db.Query(`SELECT id,patron_id,book_id,borrow_date,due_date
        FROM borrow_records WHERE patron_id=? AND return_date IS NULL ORDER BY borrow_date, id`, patronID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*BorrowRecord
	for rows.Next() {
		var r BorrowRecord
		if err := rows.Scan(&r.ID, &r.PatronID, &r.BookID, &r.BorrowDate, &r.DueDate); err != nil {
			return nil, err
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// ActiveBorrowRecord returns the patron's open loan for one book, or
// ErrNotBorrowed when there is none.
func (d *Database) ActiveBorrowRecord(patronID string, bookID int64) (*BorrowRecord, error) {
	var r BorrowRecord
	err := d.db.QueryRow(`SELECT id,patron_id,book_id,borrow_date,due_date
        FROM borrow_records WHERE patron_id=? AND book_id=? AND return_date IS NULL`, patronID, bookID).
		Scan(&r.ID, &r.PatronID, &r.BookID, &r.BorrowDate, &r.DueDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotBorrowed
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// BorrowHistory returns every loan the patron ever had, oldest first.
func (d *Database) BorrowHistory(patronID string) ([]*BorrowRecord, error) {
	rows, err := d.db.Query(`SELECT id,patron_id,book_id,borrow_date,due_date,return_date
        FROM borrow_records WHERE patron_id=? ORDER BY borrow_date, id`, patronID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*BorrowRecord
	for rows.Next() {
		var r BorrowRecord
		var ret sql.NullTime
		if err := rows.Scan(&r.ID, &r.PatronID, &r.BookID, &r.BorrowDate, &r.DueDate, &ret); err != nil {
			return nil, err
		}
		if ret.Valid {
			t := ret.Time
			r.ReturnDate = &t
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// ---------------------------------------------------------------------------
// Circulation
// ---------------------------------------------------------------------------

// maxActiveBorrows is the most books a patron may have out at once.
const maxActiveBorrows = 5

// BorrowBook records the loan and updates availability in one transaction.
// Eligibility (copies on shelf, borrow limit, one active loan per pair) is
// checked inside the same transaction as the insert so the invariants hold
// under concurrent callers.
func (d *Database) BorrowBook(patronID string, bookID int64, now time.Time) (*BorrowRecord, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var title string
	var available int
	err = tx.QueryRow(`SELECT title,available_copies FROM books WHERE id=?`, bookID).Scan(&title, &available)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	if available <= 0 {
		return nil, ErrUnavailable
	}

	var active int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM borrow_records WHERE patron_id=? AND return_date IS NULL`, patronID).Scan(&active); err != nil {
		return nil, err
	}
	if active >= maxActiveBorrows {
		return nil, ErrLimitReached
	}

	var duplicate bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM borrow_records WHERE patron_id=? AND book_id=? AND return_date IS NULL)`, patronID, bookID).Scan(&duplicate); err != nil {
		return nil, err
	}
	if duplicate {
		return nil, ErrAlreadyBorrowed
	}

	record := &BorrowRecord{
		PatronID:   patronID,
		BookID:     bookID,
		BorrowDate: now,
		DueDate:    now.Add(loanPeriod),
	}
	res, err := tx.Exec(`INSERT INTO borrow_records(patron_id,book_id,borrow_date,due_date) VALUES(?,?,?,?)`,
		record.PatronID, record.BookID, record.BorrowDate, record.DueDate)
	if err != nil {
		return nil, err
	}
	if record.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`UPDATE books SET available_copies=available_copies-1 WHERE id=? AND available_copies>0`, bookID); err != nil {
		return nil, err
	}

	return record, tx.Commit()
}

// ReturnBookRecord closes the active loan and restores availability in one
// transaction. The returned record still carries the pre-return due date so
// callers can assess the late fee against it.
func (d *Database) ReturnBookRecord(patronID string, bookID int64, now time.Time) (*BorrowRecord, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var r BorrowRecord
	err = tx.QueryRow(`SELECT id,patron_id,book_id,borrow_date,due_date
        FROM borrow_records WHERE patron_id=? AND book_id=? AND return_date IS NULL`, patronID, bookID).
		Scan(&r.ID, &r.PatronID, &r.BookID, &r.BorrowDate, &r.DueDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotBorrowed
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`UPDATE borrow_records SET return_date=? WHERE id=?`, now, r.ID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`UPDATE books SET available_copies=available_copies+1
        WHERE id=? AND available_copies<total_copies`, bookID); err != nil {
		return nil, err
	}

	r.ReturnDate = &now
	return &r, tx.Commit()
}

// ---------------------------------------------------------------------------
// Patrons
// ---------------------------------------------------------------------------

func (d *Database) AddPatron(cardNumber, name, passwordHash string) (int64, error) {
	res, err := d.addPatronStmt.Exec(cardNumber, name, passwordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrDuplicateCard
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (d *Database) GetPatronByCard(cardNumber string) (*Patron, error) {
	var p Patron
	err := d.db.QueryRow(`SELECT id,card_number,name,password_hash FROM patrons WHERE card_number=?`, cardNumber).
		Scan(&p.ID, &p.CardNumber, &p.Name, &p.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
