// Package main is the entry point for the ipsniff IPv4 packet sniffer.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/ipsniff/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
