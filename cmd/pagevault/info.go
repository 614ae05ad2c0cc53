package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/pagevault/pagevault"
)

// fileInfo is the info command's output for one database file.
type fileInfo struct {
	Path          string `json:"path"`
	PageSize      int    `json:"page_size"`
	PageCount     uint32 `json:"page_count"`
	ChangeCounter uint32 `json:"change_counter"`
	SizeBytes     int64  `json:"size_bytes"`
	Encrypted     bool   `json:"encrypted"`
}

// infoCmd handles the info command.
func infoCmd(args []string) int {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	key := fs.String("key", "", "Encryption passphrase")
	suiteName := fs.String("suite", "rc4", "Cipher suite")
	asJSON := fs.Bool("json", false, "Output as JSON")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *help || *helpLong {
		printInfoUsage(os.Stdout)
		return 0
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one file argument is required")
		printInfoUsage(os.Stderr)
		return 1
	}
	path := fs.Arg(0)

	suite, err := pagevault.ParseSuite(*suiteName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	info, err := gatherInfo(path, *key, suite)
	if err != nil {
		if errors.Is(err, pagevault.ErrNotADatabase) && *key == "" {
			fmt.Fprintf(os.Stderr, "Error: %s is encrypted or not a database (try -key)\n", path)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}

	if *asJSON {
		out, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Println(string(out))
		return 0
	}

	fmt.Printf("Path:           %s\n", info.Path)
	fmt.Printf("Page size:      %d\n", info.PageSize)
	fmt.Printf("Page count:     %d\n", info.PageCount)
	fmt.Printf("Change counter: %d\n", info.ChangeCounter)
	fmt.Printf("File size:      %d bytes\n", info.SizeBytes)
	fmt.Printf("Encrypted:      %v\n", info.Encrypted)
	return 0
}

// gatherInfo opens the file read-only and reads its header fields.
func gatherInfo(path, key string, suite pagevault.Suite) (*fileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	db, err := pagevault.Open(path, pagevault.DefaultOptions().
		WithReadOnly(true).
		WithCreateIfMissing(false).
		WithPassphrase(key).
		WithSuite(suite))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	pageSize, err := db.PageSize(pagevault.MainDatabase)
	if err != nil {
		return nil, err
	}
	pageCount, err := db.PageCount(pagevault.MainDatabase)
	if err != nil {
		return nil, err
	}
	changes, err := db.ChangeCounter(pagevault.MainDatabase)
	if err != nil {
		return nil, err
	}
	encrypted, err := db.IsEncrypted(pagevault.MainDatabase)
	if err != nil {
		return nil, err
	}

	return &fileInfo{
		Path:          path,
		PageSize:      pageSize,
		PageCount:     pageCount,
		ChangeCounter: changes,
		SizeBytes:     st.Size(),
		Encrypted:     encrypted,
	}, nil
}
