package main

import (
	"fmt"
	"os"

	"golang.beyond.io/tdi-ingest/cmd/tdi/commands"
)

func main() {
	err := commands.Execute()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
