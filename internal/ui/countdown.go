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
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"k8s.io/utils/clock"
)

// Countdown sleeps while rewriting the remaining seconds in place.
type Countdown struct {
	out   io.Writer
	clock clock.Clock
}

func NewCountdown(out io.Writer, c clock.Clock) *Countdown {
	return &Countdown{out: out, clock: c}
}

func (c *Countdown) Wait(ctx context.Context, d time.Duration) error {
	deadline := c.clock.Now().Add(d)
	for {
		remaining := deadline.Sub(c.clock.Now())
		if remaining <= 0 {
			fmt.Fprintf(c.out, "\r%8d\n", 0)
			return nil
		}
		fmt.Fprintf(c.out, "\r%8d", int(math.Ceil(remaining.Seconds())))

		select {
		case <-c.clock.After(min(remaining, time.Second)):
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return ctx.Err()
		}
	}
}
