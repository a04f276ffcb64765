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
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskYesNo(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"maybe\nn\n", false},
		{"\n\nno", false},
	}
	for _, tt := range tests {
		t.Run(strconv.Quote(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			got, err := NewPrompter(strings.NewReader(tt.input), &out).AskYesNo(context.Background(), "Continue (y|n:stop)? ")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAskYesNoClosedInput(t *testing.T) {
	_, err := NewPrompter(strings.NewReader(""), &bytes.Buffer{}).AskYesNo(context.Background(), "? ")
	require.ErrorIs(t, err, ErrNoAnswer)
}

func TestAskValueRepromptsUntilValid(t *testing.T) {
	var out bytes.Buffer
	validate := func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil || n < 180 {
			return errors.New("must be >= 180")
		}
		return nil
	}

	got, err := NewPrompter(strings.NewReader("abc\n60\n300\n"), &out).AskValue(context.Background(), "max wait: ", validate)
	require.NoError(t, err)
	assert.Equal(t, "300", got)
	assert.Equal(t, 3, strings.Count(out.String(), "max wait: "))
	assert.Equal(t, 2, strings.Count(out.String(), "must be >= 180"))
}

func TestAskYesNoReturnsOnCancel(t *testing.T) {
	in, w := io.Pipe()
	defer w.Close()
	p := NewPrompter(in, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.AskYesNo(ctx, "Continue (y|n:stop)? ")
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("prompt still waits for input after cancel")
	}
}

func TestAskValueAfterCancelGetsNextLine(t *testing.T) {
	in, w := io.Pipe()
	defer w.Close()
	p := NewPrompter(in, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.AskValue(ctx, "interval: ", nil)
	require.ErrorIs(t, err, context.Canceled)

	go func() { _, _ = io.WriteString(w, "30\n") }()
	got, err := p.AskValue(context.Background(), "interval: ", nil)
	require.NoError(t, err)
	assert.Equal(t, "30", got)
}
