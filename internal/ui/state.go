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
	"io"
	"sync"

	"github.com/muesli/termenv"
)

// UIState tracks the terminal modes switched on by the presentation layer
// so they can be scoped around one operation and restored on interrupt.
type UIState struct {
	mu           sync.Mutex
	out          *termenv.Output
	tty          bool
	altScreen    bool
	cursorHidden bool
	spinning     bool
}

// NewUIState binds the state to w. Terminal modes are only switched when tty
// is true.
func NewUIState(w io.Writer, tty bool) *UIState {
	return &UIState{out: termenv.NewOutput(w), tty: tty}
}

func (s *UIState) Output() *termenv.Output {
	return s.out
}

func (s *UIState) TTY() bool {
	return s.tty
}

// WithAltScreen runs fn on the alternate screen.
func (s *UIState) WithAltScreen(fn func() error) error {
	if !s.enter(&s.altScreen, s.out.AltScreen) {
		return fn()
	}
	defer s.leave(&s.altScreen, s.out.ExitAltScreen)
	return fn()
}

// WithSpinner runs fn with the cursor hidden and the spinner flag raised.
func (s *UIState) WithSpinner(fn func() error) error {
	s.mu.Lock()
	s.spinning = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.spinning = false
		s.mu.Unlock()
	}()

	if !s.enter(&s.cursorHidden, s.out.HideCursor) {
		return fn()
	}
	defer s.leave(&s.cursorHidden, s.out.ShowCursor)
	return fn()
}

// Spinning reports whether a spinner currently owns the current line.
func (s *UIState) Spinning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spinning
}

// Restore leaves every mode still switched on.
func (s *UIState) Restore() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spinning {
		s.out.ClearLine()
		_, _ = io.WriteString(s.out, "\r")
		s.spinning = false
	}
	if s.cursorHidden {
		s.out.ShowCursor()
		s.cursorHidden = false
	}
	if s.altScreen {
		s.out.ExitAltScreen()
		s.altScreen = false
	}
}

func (s *UIState) enter(flag *bool, on func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tty || *flag {
		return false
	}
	on()
	*flag = true
	return true
}

func (s *UIState) leave(flag *bool, off func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *flag {
		off()
		*flag = false
	}
}
