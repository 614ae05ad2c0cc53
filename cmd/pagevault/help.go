package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage information to the given writer.
func printUsage(w io.Writer) {
	fmt.Fprint(w, `pagevault - Encrypted paged storage files

Usage:
  pagevault <command> [options]

Commands:
  init        Create a new database file
  info        Show database file information
  rekey       Change the encryption key of database files
  verify      Verify that database files are readable
  version     Show version information

Use "pagevault <command> -h" for more information about a command.
`)
}

// printInitUsage prints the init command usage.
func printInitUsage(w io.Writer) {
	fmt.Fprint(w, `Create a new database file

Usage:
  pagevault init [options] <file>

Options:
  -key string
        Encryption passphrase (empty for plaintext)
  -suite string
        Cipher suite: rc4, chacha20 (default "rc4")
  -page-size int
        Page size in bytes, power of two (default 4096)
  -pages int
        Number of data pages to preallocate (default 0)
  -h, -help
        Show this help message
`)
}

// printInfoUsage prints the info command usage.
func printInfoUsage(w io.Writer) {
	fmt.Fprint(w, `Show database file information

Usage:
  pagevault info [options] <file>

Options:
  -key string
        Encryption passphrase
  -suite string
        Cipher suite: rc4, chacha20 (default "rc4")
  -json
        Output as JSON
  -h, -help
        Show this help message
`)
}

// printRekeyUsage prints the rekey command usage.
func printRekeyUsage(w io.Writer) {
	fmt.Fprint(w, `Change the encryption key of database files

Every page of each file is rewritten under the new key inside a single
transaction; an interrupted rekey is rolled back on the next open. An
empty -new-key decrypts the files.

Usage:
  pagevault rekey [options] <file> [file ...]

Options:
  -key string
        Current passphrase (empty if the files are plaintext)
  -new-key string
        New passphrase (empty to decrypt)
  -suite string
        Cipher suite: rc4, chacha20 (default "rc4")
  -h, -help
        Show this help message
`)
}

// printVerifyUsage prints the verify command usage.
func printVerifyUsage(w io.Writer) {
	fmt.Fprint(w, `Verify that database files are readable

Reads every page of each file with the given key and reports the first
failure per file.

Usage:
  pagevault verify [options] <file> [file ...]

Options:
  -key string
        Encryption passphrase
  -suite string
        Cipher suite: rc4, chacha20 (default "rc4")
  -h, -help
        Show this help message
`)
}

// printVersionUsage prints the version command usage.
func printVersionUsage(w io.Writer) {
	fmt.Fprint(w, `Show version information

Usage:
  pagevault version [options]

Options:
  -short
        Show only version number
  -h, -help
        Show this help message
`)
}
