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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrNoAnswer is returned when the input closes before an answer.
var ErrNoAnswer = errors.New("no answer from operator")

type inputLine struct {
	text string
	err  error
}

// Prompter asks the operator on a line based input. One goroutine reads
// the input for the whole life of the prompter.
type Prompter struct {
	in    *bufio.Reader
	out   io.Writer
	lines chan inputLine
	start sync.Once
	// closed is the error of the input once it ended.
	closed error
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, lines: make(chan inputLine)}
}

// AskYesNo repeats the question until it gets y(es) or n(o). It returns
// ctx.Err() as soon as ctx is done.
func (p *Prompter) AskYesNo(ctx context.Context, question string) (bool, error) {
	for {
		answer, err := p.readLine(ctx, question)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

// AskValue repeats the question until validate accepts the answer.
func (p *Prompter) AskValue(ctx context.Context, question string, validate func(string) error) (string, error) {
	for {
		answer, err := p.readLine(ctx, question)
		if err != nil {
			return "", err
		}
		if validate == nil {
			return answer, nil
		}
		if err := validate(answer); err != nil {
			fmt.Fprintln(p.out, red(err.Error()))
			continue
		}
		return answer, nil
	}
}

func (p *Prompter) readLine(ctx context.Context, question string) (string, error) {
	if p.closed != nil {
		return "", p.closed
	}
	p.start.Do(func() { go p.read() })

	fmt.Fprint(p.out, Question(question))
	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", ctx.Err()
	case l := <-p.lines:
		line := strings.TrimSpace(l.text)
		if l.err != nil {
			p.closed = ErrNoAnswer
			if errors.Is(l.err, io.EOF) && line != "" {
				return line, nil
			}
			fmt.Fprintln(p.out)
			return "", ErrNoAnswer
		}
		return line, nil
	}
}

func (p *Prompter) read() {
	for {
		text, err := p.in.ReadString('\n')
		p.lines <- inputLine{text: text, err: err}
		if err != nil {
			return
		}
	}
}
