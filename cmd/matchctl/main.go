// Command matchctl inspects and seeds a matchmaker SQLite database offline.
package main

import (
	"fmt"
	"os"

	"github.com/okian/matchmaker/pkg/logger"
)

func main() {
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	_ = logger.SetLevelString("warn")

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
