// ABOUTME: CLI entrypoint for listingdesk: the blog admin web editor, terminal editor, and headless posting.
// ABOUTME: Exits non-zero with the error message when a command fails.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
