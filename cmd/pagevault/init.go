package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pagevault/pagevault"
)

// initCmd handles the init command.
func initCmd(args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	key := fs.String("key", "", "Encryption passphrase")
	suiteName := fs.String("suite", "rc4", "Cipher suite")
	pageSize := fs.Int("page-size", 4096, "Page size in bytes")
	pages := fs.Int("pages", 0, "Number of data pages to preallocate")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *help || *helpLong {
		printInitUsage(os.Stdout)
		return 0
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one file argument is required")
		printInitUsage(os.Stderr)
		return 1
	}
	path := fs.Arg(0)

	suite, err := pagevault.ParseSuite(*suiteName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(os.Stderr, "Error: %s already exists\n", path)
		return 1
	}

	db, err := pagevault.Open(path, pagevault.DefaultOptions().
		WithPageSize(*pageSize).
		WithPassphrase(*key).
		WithSuite(suite))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	for i := 0; i < *pages; i++ {
		if _, err := tx.Allocate(); err != nil {
			tx.Rollback()
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}
	if err := tx.Commit(); err != nil {
		tx.Rollback()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	encrypted := "plaintext"
	if *key != "" {
		encrypted = fmt.Sprintf("encrypted (%s)", suite)
	}
	fmt.Printf("Created %s: page size %d, %d data pages, %s\n", path, *pageSize, *pages, encrypted)
	return 0
}
