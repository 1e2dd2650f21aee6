package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"carousel/internal/generation"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, strings.Join(generation.Lines(nil, err), "\n"))
		}
		os.Exit(1)
	}
}
