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
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

const manifestTimeLayout = "20060102150405"

// ManifestPath returns a fresh manifest location for one run against one
// cluster, e.g. /tmp/cm01-cluster-1_20240101120000.exp.
func ManifestPath(dir, manager, cluster string, now time.Time) string {
	name := slug.Make(manager+" "+cluster) + "_" + now.Format(manifestTimeLayout) + ".exp"
	return filepath.Join(dir, name)
}

// Manifest is the region assignment exported before the first drain. Each
// line starts with a region server name (host,port,startcode) followed by
// '/' and the region data.
type Manifest struct {
	Path string
}

// RegionServerFor returns the region server unit recorded for hostname.
// Hosts are matched by their first DNS label. ok is false when the host has
// no regions in the manifest.
func (m Manifest) RegionServerFor(hostname string) (regionServer string, ok bool, err error) {
	f, err := os.Open(m.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, fmt.Errorf("%w: %s", ErrManifestNotFound, m.Path)
	}
	if err != nil {
		return "", false, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	want := firstLabel(hostname)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		unit, _, _ := strings.Cut(scanner.Text(), "/")
		host, _, _ := strings.Cut(unit, ",")
		if unit != "" && firstLabel(host) == want {
			return strings.TrimSpace(unit), true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", false, fmt.Errorf("read manifest %s: %w", m.Path, err)
	}
	return "", false, nil
}

func firstLabel(hostname string) string {
	label, _, _ := strings.Cut(strings.TrimSpace(hostname), ".")
	return label
}
