/*
Copyright 2025 Flant JSC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ui

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/term"
	"k8s.io/utils/clock"
)

const (
	TimeLayout = "2006-01-02 15:04:05"

	treeLeaf   = "└──"
	treeBranch = "├──"

	defaultWidth = 120
	// timestamp, space and "  └── "
	commandIndent = len(TimeLayout) + 7
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()

	ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
)

// Printer writes timestamped status lines for the operator and keeps an
// uncolored copy of everything it printed.
type Printer struct {
	mu         sync.Mutex
	out        io.Writer
	clock      clock.PassiveClock
	width      int
	transcript []string
}

type PrinterOption func(*Printer)

func WithClock(c clock.PassiveClock) PrinterOption {
	return func(p *Printer) { p.clock = c }
}

// WithWidth overrides the detected terminal width.
func WithWidth(width int) PrinterOption {
	return func(p *Printer) {
		if width > 0 {
			p.width = width
		}
	}
}

func NewPrinter(out io.Writer, opts ...PrinterOption) *Printer {
	p := &Printer{
		out:   out,
		clock: clock.RealClock{},
		width: terminalWidth(out),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func terminalWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// Action prints e.g. "Restart [host] role" with the verb in red.
func (p *Printer) Action(verb, target string) {
	p.stamped(red(verb) + " " + yellow(target))
}

// Title prints a red headline.
func (p *Printer) Title(format string, args ...any) {
	p.stamped(red(fmt.Sprintf(format, args...)))
}

func (p *Printer) Info(format string, args ...any) {
	p.stamped(fmt.Sprintf(format, args...))
}

// Step prints a detail line under the previous headline.
func (p *Printer) Step(format string, args ...any) {
	p.stamped("  " + treeLeaf + " " + fmt.Sprintf(format, args...))
}

func (p *Printer) Success(format string, args ...any) {
	p.stamped("  " + treeLeaf + " " + green(fmt.Sprintf(format, args...)))
}

func (p *Printer) Warn(format string, args ...any) {
	p.stamped(yellow(fmt.Sprintf(format, args...)))
}

func (p *Printer) Error(format string, args ...any) {
	p.stamped(red(fmt.Sprintf(format, args...)))
}

// Command prints an external command line wrapped under the timestamp
// column.
func (p *Printer) Command(commandLine string) {
	width := max(p.width-commandIndent, 40)
	wrapped := wordwrap.WrapString(commandLine, uint(width))
	p.Step("%s", strings.ReplaceAll(wrapped, "\n", "\n"+strings.Repeat(" ", commandIndent)))
}

// Plain prints a line without timestamp, e.g. the selection preview.
func (p *Printer) Plain(format string, args ...any) {
	p.emit(fmt.Sprintf(format, args...))
}

// Tree prints items as a tree under a heading line.
func (p *Printer) Tree(indent int, items []string) {
	for i, item := range items {
		prefix := treeBranch
		if i == len(items)-1 {
			prefix = treeLeaf
		}
		p.Plain("%s%s %s", strings.Repeat(" ", indent), prefix, item)
	}
}

// Question renders a prompt the way the printer renders everything else.
func Question(q string) string {
	return cyan(q)
}

func (p *Printer) stamped(line string) {
	p.emit(p.clock.Now().Format(TimeLayout) + " " + line)
}

func (p *Printer) emit(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.out, line)
	for _, l := range strings.Split(line, "\n") {
		p.transcript = append(p.transcript, StripColor(l))
	}
}

// Mark returns a position to pass to Since.
func (p *Printer) Mark() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.transcript)
}

// Since returns the transcript lines printed after mark, without colors.
// Since(0) returns the whole transcript.
func (p *Printer) Since(mark int) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if mark < 0 || mark > len(p.transcript) {
		mark = 0
	}
	return append([]string(nil), p.transcript[mark:]...)
}

func StripColor(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}
