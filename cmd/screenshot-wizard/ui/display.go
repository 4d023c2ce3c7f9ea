package ui

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"
)

// Table displays rows under headers in aligned columns.
func Table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))
	separator := make([]string, len(headers))
	for i := range separator {
		separator[i] = strings.Repeat("-", len(headers[i]))
	}
	fmt.Fprintln(w, strings.Join(separator, "\t"))

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

// Banner prints title between two rules.
func Banner(title string, lines ...string) {
	rule := strings.Repeat("=", 40)
	headerColor.Fprintln(out, title)
	fmt.Fprintln(out, rule)
	for _, l := range lines {
		fmt.Fprintln(out, l)
	}
	fmt.Fprintln(out, rule)
}

// KeyValue displays an aligned key-value pair.
func KeyValue(key, value string) {
	fmt.Fprintf(out, "%-16s%s\n", key+":", value)
}

// FormatDuration formats d for humans.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	d = d.Round(time.Second)

	minutes := d / time.Minute
	seconds := (d - minutes*time.Minute) / time.Second
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
