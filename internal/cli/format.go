package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	// fatih/color disables these automatically when output is not a TTY
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
	labelColor   = color.New(color.FgWhite, color.Bold)
	valueColor   = color.New(color.FgHiBlack)
	dimColor     = color.New(color.FgHiBlack)
)

// printer writes human readable command output.
type printer struct {
	w io.Writer
}

// Section prints a section header
func (p printer) Section(title string) {
	fmt.Fprintln(p.w)
	_, _ = headerColor.Fprintf(p.w, "▸ %s\n", title)
	fmt.Fprintln(p.w)
}

// Success prints a success message with a checkmark
func (p printer) Success(msg string) {
	_, _ = successColor.Fprintf(p.w, "✓ %s\n", msg)
}

// Warning prints a warning message with a warning symbol
func (p printer) Warning(msg string) {
	_, _ = warningColor.Fprintf(p.w, "⚠ %s\n", msg)
}

// Error prints an error line; the final command error goes to stderr separately
func (p printer) Error(msg string) {
	_, _ = errorColor.Fprintf(p.w, "✗ %s\n", msg)
}

func (p printer) Info(msg string) {
	fmt.Fprintln(p.w, msg)
}

// LabelValue prints a label-value pair with proper formatting
func (p printer) LabelValue(label, value string) {
	_, _ = labelColor.Fprintf(p.w, "  %s: ", label)
	_, _ = valueColor.Fprintln(p.w, value)
}

// LabelValueWithColor prints a label-value pair with a custom value color
func (p printer) LabelValueWithColor(label, value string, valueClr *color.Color) {
	_, _ = labelColor.Fprintf(p.w, "  %s: ", label)
	_, _ = valueClr.Fprintln(p.w, value)
}

// List prints a list of items with bullet points
func (p printer) List(items []string, indent int) {
	indentStr := strings.Repeat("  ", indent)
	for _, item := range items {
		_, _ = infoColor.Fprintf(p.w, "%s• %s\n", indentStr, item)
	}
}

// NumberedList prints a numbered list
func (p printer) NumberedList(items []string, indent int) {
	indentStr := strings.Repeat("  ", indent)
	for i, item := range items {
		_, _ = infoColor.Fprintf(p.w, "%s%d. %s\n", indentStr, i+1, item)
	}
}

// Table prints a simple column table
func (p printer) Table(headers []string, rows [][]string) {
	if len(headers) == 0 || len(rows) == 0 {
		return
	}

	colWidths := make([]int, len(headers))
	for i, header := range headers {
		colWidths[i] = len(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(colWidths) && len(cell) > colWidths[i] {
				colWidths[i] = len(cell)
			}
		}
	}

	fmt.Fprint(p.w, "  ")
	for i, header := range headers {
		if i > 0 {
			fmt.Fprint(p.w, "  ")
		}
		_, _ = headerColor.Fprintf(p.w, "%-*s", colWidths[i], header)
	}
	fmt.Fprintln(p.w)

	fmt.Fprint(p.w, "  ")
	for i, width := range colWidths {
		if i > 0 {
			fmt.Fprint(p.w, "  ")
		}
		fmt.Fprint(p.w, strings.Repeat("-", width))
	}
	fmt.Fprintln(p.w)

	for _, row := range rows {
		fmt.Fprint(p.w, "  ")
		for i, cell := range row {
			if i >= len(colWidths) {
				break
			}
			if i > 0 {
				fmt.Fprint(p.w, "  ")
			}
			_, _ = valueColor.Fprintf(p.w, "%-*s", colWidths[i], cell)
		}
		fmt.Fprintln(p.w)
	}
}

// EmptyState prints a message when there's no data to show
func (p printer) EmptyState(msg string) {
	_, _ = dimColor.Fprintf(p.w, "  %s\n", msg)
}

// Count formats a count with the right noun
func Count(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}
