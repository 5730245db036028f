package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/phrazzld/bubbletasks/internal/countdown"
	"github.com/phrazzld/bubbletasks/internal/domain"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// shortIDLength is how much of a task ID the table shows. Any unique prefix
// is accepted where a command takes an ID.
const shortIDLength = 8

func validOutput(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
}

// writeTasks renders tasks in the requested format.
func writeTasks(w io.Writer, format string, tasks []*domain.Task) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	case outputYAML:
		return writeYAML(w, tasks)
	}

	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tEST\tREMAINING\tTITLE")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%dm\t%s\t%s\n",
			shortID(t), t.Status, t.EstMinutes, remainingColumn(t), t.Title)
	}
	return tw.Flush()
}

// writeTask renders a single task.
func writeTask(w io.Writer, format string, task *domain.Task) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(task)
	case outputYAML:
		return writeYAML(w, task)
	}
	return writeTasks(w, format, []*domain.Task{task})
}

// writeYAML goes through JSON so the keys match the API field names.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

func shortID(t *domain.Task) string {
	return t.ID.String()[:shortIDLength]
}

func remainingColumn(t *domain.Task) string {
	if t.RemainingSeconds == nil {
		return "-"
	}
	return countdown.Format(*t.RemainingSeconds)
}

// progressBar draws percent (0..100) as a fixed-width bar.
func progressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// truncate shortens s to at most width runes, marking the cut with "~".
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "~"
}
