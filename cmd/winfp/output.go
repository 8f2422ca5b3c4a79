package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"winfp/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusPass
	statusFail
	statusWarn
	statusStep
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiCyan   = "\x1b[36m"
)

const statusIndent = "  "

// statusStyles maps each kind to its label and label color.
var statusStyles = map[statusKind]struct{ label, color string }{
	statusInfo: {"[INFO]", ansiBlue},
	statusPass: {"[PASS]", ansiGreen},
	statusFail: {"[FAIL]", ansiRed},
	statusWarn: {"[WARN]", ansiYellow},
	statusStep: {"-->", ansiBlue},
}

// renderStatusLine colors only the label so messages stay greppable.
func renderStatusLine(kind statusKind, message string, colorize bool) string {
	style, ok := statusStyles[kind]
	if !ok {
		style = statusStyles[statusInfo]
	}
	label := style.label
	if colorize {
		label = ansiBold + style.color + label + ansiReset
	}
	return statusIndent + label + " " + message
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printer writes user-facing command output. Logs go elsewhere.
type printer struct {
	out   io.Writer
	color bool
}

func newPrinter(cmd *cobra.Command) *printer {
	out := cmd.OutOrStdout()
	return &printer{out: out, color: shouldColorize(out)}
}

func (p *printer) header(title string) {
	line := fmt.Sprintf("=== %s ===", strings.TrimSpace(title))
	if p.color {
		line = ansiBold + ansiCyan + line + ansiReset
	}
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, line)
}

func (p *printer) status(kind statusKind, format string, args ...any) {
	fmt.Fprintln(p.out, renderStatusLine(kind, fmt.Sprintf(format, args...), p.color))
}

func (p *printer) pass(format string, args ...any) { p.status(statusPass, format, args...) }
func (p *printer) fail(format string, args ...any) { p.status(statusFail, format, args...) }
func (p *printer) warn(format string, args ...any) { p.status(statusWarn, format, args...) }
func (p *printer) step(format string, args ...any) { p.status(statusStep, format, args...) }

func (p *printer) info(label, value string) {
	if p.color {
		label = ansiBold + label + ansiReset
	}
	fmt.Fprintf(p.out, "%s%s: %s\n", statusIndent, label, value)
}

func (p *printer) blank() { fmt.Fprintln(p.out) }

func (p *printer) table(headers []string, rows [][]string, aligns []columnAlignment) {
	if rendered := renderTable(headers, rows, aligns); rendered != "" {
		fmt.Fprintln(p.out, rendered)
	}
}

func (p *printer) section(s preflight.Section) {
	p.header(s.Title)
	for _, r := range s.Results {
		p.result(r)
	}
}

func (p *printer) result(r preflight.Result) {
	message := r.Detail
	if r.Name != "" {
		message = r.Name + ": " + r.Detail
	}
	switch r.Status {
	case preflight.StatusPass:
		p.pass("%s", message)
	case preflight.StatusFail:
		p.fail("%s", message)
	case preflight.StatusWarn:
		p.warn("%s", message)
	default:
		p.info(r.Name, r.Detail)
	}
	if r.Hint != "" {
		p.step("%s", r.Hint)
	}
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable draws a rounded go-pretty table. Short rows are padded and
// columns without an entry in aligns are left aligned.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	if len(headers) == 0 {
		return ""
	}
	toRow := func(cells []string) table.Row {
		row := make(table.Row, len(headers))
		for i := range row {
			row[i] = ""
			if i < len(cells) {
				row[i] = cells[i]
			}
		}
		return row
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers))
	for _, cells := range rows {
		tw.AppendRow(toRow(cells))
	}
	configs := make([]table.ColumnConfig, len(headers))
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if i < len(aligns) && aligns[i] == alignRight {
			configs[i].Align = text.AlignRight
		}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
