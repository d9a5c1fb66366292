// Package main provides the schemamerge CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/schemamerge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
