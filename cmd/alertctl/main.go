// Command alertctl edits alert relationship templates against a running
// alert-dashboard backend.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
