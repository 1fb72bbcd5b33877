package main

import (
	"os"

	"github.com/garyjia/expense-batchpay/internal/interfaces/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
