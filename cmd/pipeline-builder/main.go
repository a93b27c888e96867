package main

import (
	"log"
	"os"

	"pipeline-builder/internal/app"
)

func main() {
	if err := app.Run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
