// Command pinctl pins files and JSON documents from the command line using the
// same gateway client and configuration as the server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(loadApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
