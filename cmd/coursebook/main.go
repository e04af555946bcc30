package main

import (
	"os"

	"coursebook/cmd/coursebook/app"
)

func main() {
	if err := app.New().Execute(); err != nil {
		os.Exit(1)
	}
}
