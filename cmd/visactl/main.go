// Command visactl scores applicants against the visa catalog from the shell,
// without a running service.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
