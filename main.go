package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"

	"library-backend/library"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const defaultDBFile = "library.db"

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "librarian",
		Short: "Library management back end: catalog, borrowing, late fees and payment",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			if dbPath == "" {
				dbPath = os.Getenv("LIBRARY_DB")
			}
			if dbPath == "" {
				dbPath = defaultDBFile
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(dbPath)
		},
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the SQLite database (defaults to $LIBRARY_DB or library.db)")
	return cmd
}

// readPassword securely reads a password with masking
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

func runShell(dbPath string) error {
	manager, err := library.NewLibraryManager(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer manager.Close()

	gateway := library.NewStubGateway(os.Getenv("PAYMENT_API_KEY"))
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Welcome to the Library Management System!")
	fmt.Println("Available commands:")
	fmt.Println("  Catalog: add book, list books, search book")
	fmt.Println("  Patrons: register patron, status")
	fmt.Println("  Circulation: borrow, return, fees")
	fmt.Println("  Payments: pay fees, refund, verify payment")
	fmt.Println("  System: exit")

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		cmd := strings.TrimSpace(scanner.Text())

		switch cmd {
		case "add book":
			handleAddBook(scanner, manager)
		case "list books":
			handleListBooks(manager)
		case "search book":
			handleSearchBooks(scanner, manager)
		case "register patron":
			handleRegisterPatron(scanner, manager)
		case "status":
			handleStatus(scanner, manager)
		case "borrow":
			handleBorrow(scanner, manager)
		case "return":
			handleReturn(scanner, manager)
		case "fees":
			handleFees(scanner, manager)
		case "pay fees":
			handlePayFees(scanner, manager, gateway)
		case "refund":
			handleRefund(scanner, manager, gateway)
		case "verify payment":
			handleVerifyPayment(scanner, gateway)
		case "exit":
			fmt.Println("Goodbye!")
			return nil
		default:
			fmt.Println("Unknown command. Type one of the available commands listed above.")
		}
	}
	return nil
}

func prompt(sc *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func promptInt64(sc *bufio.Scanner, label string) (int64, bool) {
	text, ok := prompt(sc, label)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		fmt.Println("Please enter a valid number.")
		return 0, false
	}
	return n, true
}

func handleAddBook(sc *bufio.Scanner, mgr *library.LibraryManager) {
	title, ok := prompt(sc, "Title: ")
	if !ok {
		return
	}
	author, ok := prompt(sc, "Author: ")
	if !ok {
		return
	}
	isbn, ok := prompt(sc, "ISBN (13 digits): ")
	if !ok {
		return
	}
	copies, ok := promptInt64(sc, "Total copies: ")
	if !ok {
		return
	}

	id, err := mgr.AddBook(title, author, isbn, int(copies))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Book %q has been successfully added to the catalog (ID: %d).\n", title, id)
}

func handleListBooks(mgr *library.LibraryManager) {
	books, err := mgr.GetAllBooks()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(books) == 0 {
		fmt.Println("The catalog is empty.")
		return
	}
	fmt.Printf("%-5s %-30s %-25s %-15s %s\n", "ID", "Title", "Author", "ISBN", "Available")
	for _, b := range books {
		fmt.Println(library.PrettyBook(b))
	}
}

func handleSearchBooks(sc *bufio.Scanner, mgr *library.LibraryManager) {
	searchType, ok := prompt(sc, "Search by (title/author/isbn): ")
	if !ok {
		return
	}
	term, ok := prompt(sc, "Search term: ")
	if !ok {
		return
	}

	results, err := mgr.SearchBooks(term, searchType)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(results) == 0 {
		fmt.Println("No books found.")
		return
	}
	for _, b := range results {
		fmt.Println(library.PrettyBook(b))
	}
}

func handleRegisterPatron(sc *bufio.Scanner, mgr *library.LibraryManager) {
	card, ok := prompt(sc, "Card number (6 digits): ")
	if !ok {
		return
	}
	name, ok := prompt(sc, "Name: ")
	if !ok {
		return
	}
	password, err := readPassword("Choose a password: ")
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}

	if _, err := mgr.RegisterPatron(card, name, password); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Patron %s registered with card %s.\n", name, card)
}

func handleStatus(sc *bufio.Scanner, mgr *library.LibraryManager) {
	patronID, ok := prompt(sc, "Patron ID: ")
	if !ok {
		return
	}

	status, err := mgr.PatronStatus(patronID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Patron %s — %d book(s) currently borrowed, total late fees $%s\n",
		status.PatronID, status.CurrentlyBorrowed, status.TotalLateFees.StringFixed(2))
	for _, bb := range status.BorrowedBooks {
		fmt.Printf("  %-30s due %s  fee $%s\n",
			bb.Book.Title, bb.DueDate.Format("2006-01-02"), bb.LateFee.StringFixed(2))
	}
	if len(status.History) > 0 {
		fmt.Println("History:")
		for _, h := range status.History {
			fmt.Printf("  %-30s borrowed %s  %s\n",
				h.Title, h.BorrowDate.Format("2006-01-02"), h.Status)
		}
	}
}

func handleBorrow(sc *bufio.Scanner, mgr *library.LibraryManager) {
	patronID, ok := prompt(sc, "Patron ID: ")
	if !ok {
		return
	}
	bookID, ok := promptInt64(sc, "Book ID: ")
	if !ok {
		return
	}

	conf, err := mgr.Borrow(patronID, bookID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Successfully borrowed %q. Due date: %s.\n", conf.BookTitle, conf.FormattedDueDate())
}

func handleReturn(sc *bufio.Scanner, mgr *library.LibraryManager) {
	patronID, ok := prompt(sc, "Patron ID: ")
	if !ok {
		return
	}
	bookID, ok := promptInt64(sc, "Book ID: ")
	if !ok {
		return
	}

	conf, err := mgr.Return(patronID, bookID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Successfully returned %q.", conf.BookTitle)
	if conf.AmountDue.IsPositive() {
		fmt.Printf(" Amount due: $%s.", conf.AmountDue.StringFixed(2))
	}
	fmt.Println()
}

func handleFees(sc *bufio.Scanner, mgr *library.LibraryManager) {
	patronID, ok := prompt(sc, "Patron ID: ")
	if !ok {
		return
	}
	bookID, ok := promptInt64(sc, "Book ID: ")
	if !ok {
		return
	}

	assessment := mgr.LateFee(patronID, bookID)
	if assessment.Status != library.FeeStatusSuccess {
		fmt.Printf("No fee assessed (%s).\n", assessment.Status)
		return
	}
	fmt.Printf("%d day(s) overdue, fee $%s\n", assessment.DaysOverdue, assessment.FeeAmount.StringFixed(2))
}

func handlePayFees(sc *bufio.Scanner, mgr *library.LibraryManager, gw library.PaymentGateway) {
	patronID, ok := prompt(sc, "Patron ID: ")
	if !ok {
		return
	}
	bookID, ok := promptInt64(sc, "Book ID: ")
	if !ok {
		return
	}

	receipt, err := mgr.PayLateFees(patronID, bookID, gw)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Paid $%s. Transaction: %s (receipt %s)\n",
		receipt.Amount.StringFixed(2), receipt.TransactionID, receipt.ReceiptID)
}

func handleRefund(sc *bufio.Scanner, mgr *library.LibraryManager, gw library.PaymentGateway) {
	txnID, ok := prompt(sc, "Transaction ID: ")
	if !ok {
		return
	}
	amountText, ok := prompt(sc, "Amount: ")
	if !ok {
		return
	}
	amount, err := decimal.NewFromString(amountText)
	if err != nil {
		fmt.Println("Please enter a valid amount.")
		return
	}

	receipt, err := mgr.RefundLateFeePayment(txnID, amount, gw)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(receipt.Message)
}

func handleVerifyPayment(sc *bufio.Scanner, gw library.PaymentGateway) {
	txnID, ok := prompt(sc, "Transaction ID: ")
	if !ok {
		return
	}
	fmt.Printf("Status: %s\n", gw.VerifyPaymentStatus(txnID))
}
