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

package hbasetools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Op names one hbase-manager sub command.
type Op string

const (
	OpBalancer Op = "balancer"
	OpExport   Op = "export"
	OpEmpty    Op = "empty"
	OpImport   Op = "import"
)

// Kerberos holds the options appended when HBase runs secured.
type Kerberos struct {
	Principal string
	Keytab    string
	Krb5Conf  string
}

func (k *Kerberos) args() []string {
	if k == nil {
		return nil
	}
	return []string{
		"--principal=" + k.Principal,
		"--keytab=" + k.Keytab,
		"--krbconf=" + k.Krb5Conf,
	}
}

// Target is what every invocation is pointed at.
type Target struct {
	// Jar is the absolute path of the hbase-manager jar.
	Jar string
	// ZooKeeper is the quorum address as host:port.
	ZooKeeper string
	Kerberos  *Kerberos
}

// Runner executes one external command and captures its output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Tool drives the hbase-manager jar.
type Tool struct {
	target       Target
	java         string
	runner       Runner
	dryRun       bool
	forceProceed bool
	observe      func(commandLine string)
}

type Option func(*Tool)

func WithRunner(r Runner) Option {
	return func(t *Tool) { t.runner = r }
}

// WithDryRun prints invocations through the observer without running them.
func WithDryRun(dryRun bool) Option {
	return func(t *Tool) { t.dryRun = dryRun }
}

// WithForceProceed passes --force-proceed to the region moving commands.
func WithForceProceed(force bool) Option {
	return func(t *Tool) { t.forceProceed = force }
}

// WithCommandObserver receives the full command line before execution.
func WithCommandObserver(fn func(commandLine string)) Option {
	return func(t *Tool) { t.observe = fn }
}

func WithJava(path string) Option {
	return func(t *Tool) {
		if path != "" {
			t.java = path
		}
	}
}

func New(target Target, opts ...Option) *Tool {
	t := &Tool{
		target:  target,
		java:    "java",
		runner:  ExecRunner{},
		observe: func(string) {},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tool) Target() Target {
	return t.target
}

func (t *Tool) DryRun() bool {
	return t.dryRun
}

// SetBalancer switches the HBase auto balancer and returns the last line
// the tool printed.
func (t *Tool) SetBalancer(ctx context.Context, on bool) (string, error) {
	stdout, err := t.run(ctx, OpBalancer, fmt.Sprint(on))
	if err != nil {
		return "", err
	}
	return lastLine(stdout), nil
}

// Export writes the assignment of all regions to manifestPath.
func (t *Tool) Export(ctx context.Context, manifestPath string) error {
	_, err := t.run(ctx, OpExport, manifestPath)
	return err
}

// Empty moves all regions off regionServer.
func (t *Tool) Empty(ctx context.Context, regionServer string) error {
	args := []string{regionServer, "--skip-export"}
	if t.forceProceed {
		args = append(args, "--force-proceed")
	}
	_, err := t.run(ctx, OpEmpty, args...)
	return err
}

// Import moves the regions recorded for regionServer in manifestPath back.
func (t *Tool) Import(ctx context.Context, manifestPath, regionServer string) error {
	args := []string{manifestPath, "--rs=" + regionServer}
	if t.forceProceed {
		args = append(args, "--force-proceed")
	}
	_, err := t.run(ctx, OpImport, args...)
	return err
}

func (t *Tool) args(op Op, opArgs ...string) []string {
	args := []string{"-jar", t.target.Jar, "assign", t.target.ZooKeeper, string(op)}
	args = append(args, opArgs...)
	return append(args, t.target.Kerberos.args()...)
}

// CommandLine renders the invocation as it would be typed in a shell.
func (t *Tool) CommandLine(op Op, opArgs ...string) string {
	return strings.Join(append([]string{t.java}, t.args(op, opArgs...)...), " ")
}

func (t *Tool) run(ctx context.Context, op Op, opArgs ...string) (string, error) {
	commandLine := t.CommandLine(op, opArgs...)
	t.observe(commandLine)
	if t.dryRun {
		return "", nil
	}

	stdout, stderr, err := t.runner.Run(ctx, t.java, t.args(op, opArgs...)...)
	if err != nil || len(bytes.TrimSpace(stderr)) > 0 {
		return "", &ToolError{
			Op:      op,
			Command: commandLine,
			Stderr:  strings.TrimSpace(string(stderr)),
			Err:     err,
		}
	}
	return string(stdout), nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// JarName returns the base name of the tool jar.
func (t Target) JarName() string {
	return filepath.Base(t.Jar)
}
