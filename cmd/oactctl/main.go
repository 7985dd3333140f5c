// Command oactctl runs assessments offline against a registry file.
package main

import (
	"errors"
	"fmt"
	"os"
)

const (
	exitSuccess = 0
	exitInvalid = 1
	exitError   = 2
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if errors.Is(err, errInvalidSignal) {
			os.Exit(exitInvalid)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitError)
	}
	os.Exit(exitSuccess)
}
