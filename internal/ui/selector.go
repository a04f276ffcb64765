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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"k8s.io/cli-runtime/pkg/printers"
)

// RenderTable aligns header and rows into columns.
func RenderTable(header []string, rows [][]string) []string {
	var buf bytes.Buffer
	w := printers.GetNewTabWriter(&buf)
	if len(header) > 0 {
		fmt.Fprintln(w, strings.Join(header, "\t"))
	}
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

// FzfRunner runs the selection program with the candidates on stdin and
// returns what it printed.
type FzfRunner func(ctx context.Context, bin string, args []string, stdin io.Reader) ([]byte, error)

func execFzf(ctx context.Context, bin string, args []string, stdin io.Reader) ([]byte, error) {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	return stdout.Bytes(), err
}

// FzfSelector lets the operator pick rows of a table with fzf.
type FzfSelector struct {
	bin   string
	state *UIState
	run   FzfRunner
}

type SelectorOption func(*FzfSelector)

func WithFzfRunner(run FzfRunner) SelectorOption {
	return func(s *FzfSelector) { s.run = run }
}

func NewFzfSelector(bin string, state *UIState, opts ...SelectorOption) *FzfSelector {
	if bin == "" {
		bin = "fzf"
	}
	s := &FzfSelector{bin: bin, state: state, run: execFzf}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns the indexes of the chosen rows. A cancelled selection
// returns an empty result without error.
func (s *FzfSelector) Select(ctx context.Context, prompt string, header []string, rows [][]string, multi bool) ([]int, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	lines := RenderTable(header, rows)
	body := lines
	headerLines := 0
	if len(header) > 0 {
		headerLines = 1
		body = lines[1:]
	}
	index := make(map[string]int, len(body))
	for i, l := range body {
		index[strings.TrimSpace(l)] = i
	}

	args := []string{
		"--reverse", "--inline-info", "-x", "--tiebreak=begin", "--no-clear",
		fmt.Sprintf("--header-lines=%d", headerLines),
		"--header=" + prompt,
	}
	if multi {
		args = append(args, "-m")
	} else {
		args = append(args, "+m")
	}

	var out []byte
	err := s.state.WithAltScreen(func() error {
		var runErr error
		out, runErr = s.run(ctx, s.bin, args, strings.NewReader(strings.Join(lines, "\n")+"\n"))
		return runErr
	})
	if err != nil {
		var exitErr *exec.ExitError
		// 1: no match, 130: cancelled by the operator
		if errors.As(err, &exitErr) && (exitErr.ExitCode() == 1 || exitErr.ExitCode() == 130) {
			return nil, nil
		}
		return nil, fmt.Errorf("run %s: %w", s.bin, err)
	}

	var selected []int
	for _, l := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if i, ok := index[strings.TrimSpace(l)]; ok {
			selected = append(selected, i)
		}
	}
	return selected, nil
}
