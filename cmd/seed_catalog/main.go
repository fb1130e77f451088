package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"library-backend/library"
)

// Seeds the catalog from a CSV of title,author,isbn,total_copies rows.
// Usage: seed_catalog <catalog.csv> [db path]
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: seed_catalog <catalog.csv> [db path]")
		os.Exit(1)
	}
	csvPath := os.Args[1]
	dbPath := "library.db"
	if len(os.Args) > 2 {
		dbPath = os.Args[2]
	}

	manager, err := library.NewLibraryManager(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening catalog file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 4

	successCount := 0
	errorCount := 0
	line := 0

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			fmt.Printf("line %d: ERROR - %v\n", line, err)
			errorCount++
			continue
		}

		title := strings.TrimSpace(row[0])
		author := strings.TrimSpace(row[1])
		isbn := strings.TrimSpace(row[2])
		copies, err := strconv.Atoi(strings.TrimSpace(row[3]))
		if err != nil {
			fmt.Printf("line %d: ERROR - bad copy count %q\n", line, row[3])
			errorCount++
			continue
		}

		fmt.Printf("Importing: %s by %s... ", title, author)
		id, err := manager.AddBook(title, author, isbn, copies)
		if err != nil {
			fmt.Printf("ERROR - %v\n", err)
			errorCount++
			continue
		}
		fmt.Printf("SUCCESS (ID: %d)\n", id)
		successCount++
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully imported: %d books\n", successCount)
	fmt.Printf("Errors: %d\n", errorCount)

	if successCount > 0 {
		fmt.Println("\nCatalog:")
		books, err := manager.GetAllBooks()
		if err != nil {
			fmt.Printf("Error retrieving books: %v\n", err)
			return
		}
		fmt.Printf("%-5s %-30s %-25s %-15s %s\n", "ID", "Title", "Author", "ISBN", "Available")
		for _, book := range books {
			fmt.Println(library.PrettyBook(book))
		}
	}
}
