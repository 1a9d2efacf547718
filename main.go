package main

import (
	"os"

	"github.com/pkp/pkplib/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
