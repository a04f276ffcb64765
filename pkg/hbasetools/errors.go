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
	"errors"
	"fmt"
	"strings"
)

var (
	ErrJarNotFound      = errors.New("hbase-manager jar not found")
	ErrManifestNotFound = errors.New("no such manifest file")
)

// ToolError is a failed hbase-manager invocation. It carries the exact
// command line and whatever the tool wrote to stderr.
type ToolError struct {
	Op      Op
	Command string
	Stderr  string
	Err     error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "hbase-manager %s failed", e.Op)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	fmt.Fprintf(&b, "\n  command: %s", e.Command)
	if e.Stderr != "" {
		fmt.Fprintf(&b, "\n  stderr:\n%s", e.Stderr)
	}
	return b.String()
}

func (e *ToolError) Unwrap() error {
	return e.Err
}
