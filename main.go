package main

import (
	"os"

	"github.com/krau/konaclassify/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
