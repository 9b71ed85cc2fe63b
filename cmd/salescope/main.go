package main

import (
	"os"

	"github.com/meridianlabs/salescope/internal/cli"
)

func main() {
	os.Exit(int(cli.Run()))
}
