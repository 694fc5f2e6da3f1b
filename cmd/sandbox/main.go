// Command sandbox creates and deletes sandbox copies of production tables.
package main

import (
	"os"

	"github.com/roach88/sandbox/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
