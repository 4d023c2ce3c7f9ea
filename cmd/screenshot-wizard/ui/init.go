// Package ui provides terminal output helpers for the screenshot-wizard CLI.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr

	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.Bold)
)

// InitUI applies the global color setting.
func InitUI(noColor bool) {
	if noColor {
		color.NoColor = true
	}
}

// SetOutput redirects standard and error output, returning a restore func.
func SetOutput(stdout, stderr io.Writer) func() {
	prevOut, prevErr := out, errOut
	out, errOut = stdout, stderr
	return func() { out, errOut = prevOut, prevErr }
}

// Message displays a plain line.
func Message(format string, args ...interface{}) {
	fmt.Fprintf(out, format, args...)
	fmt.Fprintln(out)
}

// Error displays an error message to stderr.
func Error(format string, args ...interface{}) {
	errorColor.Fprintf(errOut, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Success displays a success message.
func Success(format string, args ...interface{}) {
	successColor.Fprintf(out, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Warning displays a warning message.
func Warning(format string, args ...interface{}) {
	warnColor.Fprintf(out, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info displays an informational message.
func Info(format string, args ...interface{}) {
	infoColor.Fprintf(out, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Section prints a bold heading.
func Section(title string) {
	headerColor.Fprintln(out, title)
}

// Newline prints a newline.
func Newline() {
	fmt.Fprintln(out)
}
