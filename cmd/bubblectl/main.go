// Package main implements bubblectl, a terminal client for the BubbleTasks
// API. It lists and edits tasks and runs the countdown of the Active task.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
