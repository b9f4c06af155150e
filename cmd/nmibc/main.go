// Command nmibc classifies NMIBC cases and prints BCG maintenance schedules
// from the command line.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
