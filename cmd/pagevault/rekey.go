package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/pagevault/pagevault"
)

// rekeyCmd handles the rekey command. Files are rekeyed in parallel; each
// file's rewrite is its own transaction, so a failure in one file never
// affects the others.
func rekeyCmd(args []string) int {
	fs := flag.NewFlagSet("rekey", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	key := fs.String("key", "", "Current passphrase")
	newKey := fs.String("new-key", "", "New passphrase")
	suiteName := fs.String("suite", "rc4", "Cipher suite")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *help || *helpLong {
		printRekeyUsage(os.Stdout)
		return 0
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one file argument is required")
		printRekeyUsage(os.Stderr)
		return 1
	}

	suite, err := pagevault.ParseSuite(*suiteName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var g errgroup.Group
	for _, path := range fs.Args() {
		path := path
		g.Go(func() error {
			if err := rekeyFile(path, *key, *newKey, suite); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Printf("Rekeyed %s\n", path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// rekeyFile opens one file under its current key and rewrites it under the
// new one.
func rekeyFile(path, key, newKey string, suite pagevault.Suite) error {
	db, err := pagevault.Open(path, pagevault.DefaultOptions().
		WithCreateIfMissing(false).
		WithPassphrase(key).
		WithSuite(suite))
	if err != nil {
		return err
	}
	defer db.Close()

	// Validate the current key before touching any page.
	if _, err := db.PageCount(pagevault.MainDatabase); err != nil {
		return err
	}
	return db.Rekey(newKey)
}
