// Package main provides the standalone veridata analysis server.
package main

import (
	"fmt"
	"os"

	"github.com/raphaelgruber/veridata-go/internal/cli"
)

func main() {
	if err := cli.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
