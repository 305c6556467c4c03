package main

import (
	"os"

	"mfpreport/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
