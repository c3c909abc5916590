// Package main is the passwordless command: an HTTP login-token server and
// the matching client tools.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	cmd := NewRootCmd()
	cmd.Version = version

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
