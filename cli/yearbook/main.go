package main

import (
	"os"

	yearbookcmder "github.com/papercomputeco/yearbook/cmd/yearbook"
)

func main() {
	cmd := yearbookcmder.NewYearbookCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
