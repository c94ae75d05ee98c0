package main

import (
	"os"

	"options-trader/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
