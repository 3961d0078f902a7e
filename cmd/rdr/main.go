// Package main provides the rdr command line tool for Resilience and
// Disaster Recovery scenarios.
package main

import (
	"os"

	"github.com/leapstack-labs/rdrkit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
