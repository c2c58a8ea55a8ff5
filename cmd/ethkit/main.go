package main

import (
	"os"

	"github.com/ethkit/ethkit/internal/app"
)

func main() {
	runner := app.NewRunner()
	os.Exit(runner.Run(os.Args[1:]))
}
