// Package console renders per-file results and the suite summary.
// Color is applied only when writing to a terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	ansiGreen  = "\x1b[32m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiReset  = "\x1b[0m"
)

type Printer struct {
	w     io.Writer
	color bool
}

func New(w io.Writer) *Printer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Printer{w: w, color: color}
}

func (p *Printer) Pass(file string, d time.Duration) {
	fmt.Fprintf(p.w, "%s %s (%s)\n", p.paint(ansiGreen, "PASS"), file, d.Round(time.Millisecond))
}

func (p *Printer) Fail(file string, exitCode int, d time.Duration, output string) {
	fmt.Fprintf(p.w, "%s %s (exit %d, %s)\n", p.paint(ansiRed, "FAIL"), file, exitCode, d.Round(time.Millisecond))
	p.replay(output)
}

// Error reports a file whose interpreter could not be launched at all,
// as opposed to one that ran and failed.
func (p *Printer) Error(file string, err error) {
	fmt.Fprintf(p.w, "%s %s: %v\n", p.paint(ansiRed, "ERROR"), file, err)
}

func (p *Printer) NoTests(dir, pattern string) {
	fmt.Fprintf(p.w, "%s no test files matching %q under %s\n", p.paint(ansiYellow, "WARN"), pattern, dir)
}

func (p *Printer) Summary(runID string, passed, failed int, elapsed time.Duration) {
	verdict := p.paint(ansiGreen, "ok")
	if failed > 0 {
		verdict = p.paint(ansiRed, "FAILED")
	}
	fmt.Fprintf(p.w, "\n%s  %d passed, %d failed in %s  (run %s)\n",
		verdict, passed, failed, elapsed.Round(time.Millisecond), runID)
}

// replay prints captured child output indented under the FAIL line.
func (p *Printer) replay(output string) {
	output = strings.TrimRight(output, "\n")
	if output == "" {
		return
	}
	for _, line := range strings.Split(output, "\n") {
		fmt.Fprintf(p.w, "    %s\n", line)
	}
}

func (p *Printer) paint(color, s string) string {
	if !p.color {
		return s
	}
	return color + s + ansiReset
}
