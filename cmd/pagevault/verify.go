package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/pagevault/pagevault"
)

// verifyCmd handles the verify command.
func verifyCmd(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	key := fs.String("key", "", "Encryption passphrase")
	suiteName := fs.String("suite", "rc4", "Cipher suite")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *help || *helpLong {
		printVerifyUsage(os.Stdout)
		return 0
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one file argument is required")
		printVerifyUsage(os.Stderr)
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
			pages, err := verifyFile(path, *key, suite)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Printf("OK %s (%d pages)\n", path, pages)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// verifyFile reads every page of the file and returns the page count.
func verifyFile(path, key string, suite pagevault.Suite) (uint32, error) {
	db, err := pagevault.Open(path, pagevault.DefaultOptions().
		WithReadOnly(true).
		WithCreateIfMissing(false).
		WithPassphrase(key).
		WithSuite(suite))
	if err != nil {
		return 0, err
	}
	defer db.Close()

	count, err := db.PageCount(pagevault.MainDatabase)
	if err != nil {
		return 0, err
	}
	for id := pagevault.PageID(2); uint32(id) <= count; id++ {
		if _, err := db.ReadPage(id); err != nil {
			return 0, err
		}
	}
	return count, nil
}
