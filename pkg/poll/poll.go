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

package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/utils/clock"
)

// DefaultInterval is the tick used by the manager confirmation loops.
const DefaultInterval = time.Second

// ErrTimeout is returned by Until when the ceiling elapsed before the
// condition was met.
var ErrTimeout = errors.New("condition not met before timeout")

// Condition reports whether the awaited state was reached. A non-nil error
// stops polling immediately.
type Condition func(ctx context.Context) (done bool, err error)

type Poller struct {
	clock    clock.Clock
	interval time.Duration
}

type Option func(*Poller)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clock.Clock) Option {
	return func(p *Poller) {
		p.clock = c
	}
}

// WithInterval sets the tick between two checks.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func New(opts ...Option) *Poller {
	p := &Poller{
		clock:    clock.RealClock{},
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Until checks cond immediately and then once per tick. With a zero timeout
// it waits until cond is done, fails, or ctx is cancelled.
func (p *Poller) Until(ctx context.Context, timeout time.Duration, cond Condition) error {
	start := p.clock.Now()

	for {
		done, err := cond(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if timeout > 0 && p.clock.Since(start) >= timeout {
			return fmt.Errorf("%w (%v)", ErrTimeout, timeout)
		}

		select {
		case <-p.clock.After(p.interval):
		case <-ctx.Done():
			return fmt.Errorf("polling cancelled: %w", ctx.Err())
		}
	}
}

// Forever is Until without a ceiling.
func (p *Poller) Forever(ctx context.Context, cond Condition) error {
	return p.Until(ctx, 0, cond)
}
