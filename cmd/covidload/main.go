package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/covidlab/covidload/internal/cli"
	"github.com/covidlab/covidload/pkg/covidload"
)

func main() {
	// Recover from panics to ensure graceful exits with stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(covidload.ExitPanic)
		}
	}()

	if err := cli.Execute(); err != nil {
		os.Exit(covidload.ExitCodeForError(err))
	}
}
