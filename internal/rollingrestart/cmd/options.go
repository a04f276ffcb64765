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

package rollingrestart

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/deckhouse/cmux-cli/internal/config"
)

const (
	flagInteractive    = "interactive"
	flagInterval       = "interval"
	flagMaxWait        = "max-wait"
	flagForceProceed   = "force-proceed"
	flagEnableBalancer = "enable-balancer"
)

// Options are the flags shared by both rolling restart commands.
type Options struct {
	ConfigPath   string
	SettingsPath string
	SnapshotPath string
	FzfPath      string

	Cluster      string
	Hosts        []string
	RoleType     string
	Roles        []string
	Nameservices []string

	Interval       time.Duration
	MaxWait        time.Duration
	Interactive    bool
	Yes            bool
	ForceProceed   bool
	DryRun         bool
	EnableBalancer bool

	// changed holds the names of the flags set on the command line.
	changed map[string]bool
}

func (o *Options) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.ConfigPath, "config", config.DefaultManagersPath(), "Path to the manager list (cm.yaml).")
	flags.StringVar(&o.SettingsPath, "settings", config.DefaultSettingsPath(), "Path to the tool settings (cmux.yaml).")
	flags.StringVar(&o.SnapshotPath, "snapshot", config.DefaultSnapshotPath(), "Path to the cluster snapshot.")
	flags.StringVar(&o.FzfPath, "fzf", "fzf", "fzf binary used for interactive selection.")

	flags.StringVar(&o.Cluster, "cluster", "", "Cluster to work on as <manager>/<cluster>.")
	flags.Var((*secondsValue)(&o.Interval), flagInterval, "Time to sleep between batches, in seconds or as a duration, e.g. 30 or 30s.")
	flags.Var((*secondsValue)(&o.MaxWait), flagMaxWait, "Max wait time for a role to reach its state after a command, e.g. 300 or 5m (>= 180s).")
	flags.BoolVar(&o.Interactive, flagInteractive, false, "Ask before every batch.")
	flags.BoolVarP(&o.Yes, "yes", "y", false, "Do not ask for confirmation; unset policy values take their defaults.")
	flags.BoolVar(&o.ForceProceed, flagForceProceed, false, "Move regions on a best-effort basis without asking.")
	flags.BoolVar(&o.DryRun, "dry-run", false, "Print hbase-manager commands instead of running them.")
	flags.BoolVar(&o.EnableBalancer, flagEnableBalancer, false, "Answer the question about turning the HBase balancer back on.")
}

func (o *Options) addHostFlags(flags *pflag.FlagSet) {
	flags.StringSliceVar(&o.Hosts, "hosts", nil, "Hostnames to restart, in order. Selected with fzf when empty.")
}

func (o *Options) addRoleFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.RoleType, "role-type", "", "Role type to restart, e.g. REGIONSERVER. Selected with fzf when empty.")
	flags.StringSliceVar(&o.Roles, "roles", nil, "Role names or hostnames to restart. Selected with fzf when empty.")
	flags.StringSliceVar(&o.Nameservices, "nameservices", nil, "HDFS nameservices to restart when the role type is NAMENODE.")
}

// bind records which policy flags were given explicitly.
func (o *Options) bind(flags *pflag.FlagSet) {
	o.changed = make(map[string]bool)
	flags.Visit(func(f *pflag.Flag) {
		o.changed[f.Name] = true
	})
}

func (o *Options) isSet(name string) bool {
	return o.changed[name]
}

// clusterKey splits --cluster into manager and cluster name.
func (o *Options) clusterKey() (manager, cluster string, err error) {
	if o.Cluster == "" {
		return "", "", nil
	}
	manager, cluster, ok := strings.Cut(o.Cluster, "/")
	if !ok || manager == "" || cluster == "" {
		return "", "", fmt.Errorf("--cluster must look like <manager>/<cluster>, got %q", o.Cluster)
	}
	return manager, cluster, nil
}

// secondsValue is a duration flag that also takes a bare number of seconds,
// the way the interactive questions do.
type secondsValue time.Duration

func (d *secondsValue) Set(s string) error {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return fmt.Errorf("negative duration %q", s)
		}
		*d = secondsValue(time.Duration(n) * time.Second)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("want seconds or a duration like 30s, got %q", s)
	}
	*d = secondsValue(v)
	return nil
}

func (d *secondsValue) String() string {
	return time.Duration(*d).String()
}

func (d *secondsValue) Type() string {
	return "duration"
}
