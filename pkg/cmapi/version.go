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

package cmapi

import (
	"github.com/Masterminds/semver/v3"
)

type versionEntry struct {
	min *semver.Version
	api string
}

// apiVersions is ordered from newest to oldest manager release.
var apiVersions = []versionEntry{
	{semver.MustParse("5.9"), "v14"},
	{semver.MustParse("5.8"), "v13"},
	{semver.MustParse("5.7"), "v12"},
	{semver.MustParse("5.5"), "v11"},
	{semver.MustParse("5.4"), "v10"},
	{semver.MustParse("5.3"), "v9"},
	{semver.MustParse("5.2"), "v8"},
	{semver.MustParse("5.1"), "v7"},
	{semver.MustParse("5.0"), "v6"},
	{semver.MustParse("4.7"), "v5"},
	{semver.MustParse("4.6"), "v4"},
	{semver.MustParse("4.5"), "v3"},
	{semver.MustParse("4.1"), "v2"},
	{semver.MustParse("4.0"), "v1"},
}

// APIVersionFor picks the REST API version for a manager release. Releases
// that can not be parsed or predate the table get the newest known version.
func APIVersionFor(managerVersion string) string {
	v, err := semver.NewVersion(managerVersion)
	if err != nil {
		return apiVersions[0].api
	}
	for _, entry := range apiVersions {
		if !v.LessThan(entry.min) {
			return entry.api
		}
	}
	return apiVersions[0].api
}
