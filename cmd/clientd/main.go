// Command clientd serves the client REST API and offers offline helpers for
// ID number checks and the OpenAPI contract.
package main

import (
	"os"
)

var exitFunc = os.Exit

func main() {
	if err := newRootCommand().Execute(); err != nil {
		exitFunc(1)
	}
}
