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
	"sync"
	"time"

	"k8s.io/utils/clock"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner renders the progress of one blocking call on a single line that
// is cleared when the call returns.
type Spinner struct {
	state *UIState
	clock clock.PassiveClock

	mu      sync.Mutex
	frame   int
	label   string
	started time.Time
}

func NewSpinner(state *UIState, c clock.PassiveClock) *Spinner {
	return &Spinner{state: state, clock: c}
}

// Spin runs fn and shows every status it reports next to label.
func (s *Spinner) Spin(label string, fn func(update func(status string)) error) error {
	return s.state.WithSpinner(func() error {
		s.mu.Lock()
		s.label = label
		s.started = s.clock.Now()
		s.frame = 0
		s.mu.Unlock()

		defer s.clear()
		return fn(s.update)
	})
}

func (s *Spinner) update(status string) {
	if !s.state.TTY() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.state.Output()
	out.ClearLine()
	elapsed := s.clock.Since(s.started).Round(time.Second)
	fmt.Fprintf(out, "\r%s %s %s (%s)", cyan(spinnerFrames[s.frame%len(spinnerFrames)]), s.label, status, elapsed)
	s.frame++
}

func (s *Spinner) clear() {
	if !s.state.TTY() {
		return
	}
	out := s.state.Output()
	out.ClearLine()
	fmt.Fprint(out, "\r")
}
