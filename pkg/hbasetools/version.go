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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const toolName = "hbase-manager"

type versionEntry struct {
	min  *semver.Version
	tool string
}

// toolVersions maps a CDH release to the hbase-manager build for its HBase,
// newest first.
var toolVersions = []versionEntry{
	{semver.MustParse("5.8"), "1.2"},
	{semver.MustParse("5.6"), "1.0"},
	{semver.MustParse("5.3"), "0.98"},
	{semver.MustParse("5.0"), "0.96"},
	{semver.MustParse("4.0"), "0.94"},
}

// ToolVersionFor returns the hbase-manager build for a CDH release.
func ToolVersionFor(cdhVersion string) (string, error) {
	v, err := semver.NewVersion(cdhVersion)
	if err != nil {
		return "", fmt.Errorf("parse CDH version %q: %w", cdhVersion, err)
	}
	for _, entry := range toolVersions {
		if !v.LessThan(entry.min) {
			return entry.tool, nil
		}
	}
	return "", fmt.Errorf("CDH %s is older than any supported %s build", cdhVersion, toolName)
}

// ResolveJar finds the hbase-manager jar for a CDH release in home.
func ResolveJar(home, cdhVersion string) (string, error) {
	ver, err := ToolVersionFor(cdhVersion)
	if err != nil {
		return "", err
	}

	entries, err := os.ReadDir(home)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", home, err)
	}

	prefix := toolName + "-" + ver
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			return filepath.Join(home, e.Name()), nil
		}
	}
	return "", fmt.Errorf("%w: %s* in %s", ErrJarNotFound, prefix, home)
}
