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
	"github.com/spf13/cobra"
	"k8s.io/kubectl/pkg/util/templates"

	dkplog "github.com/deckhouse/deckhouse/pkg/log"

	"github.com/deckhouse/cmux-cli/internal/ui"
)

var hostsLong = templates.LongDesc(`
Restart every role of the selected hosts, one host after another.

Each role is put into maintenance mode, stopped and started again. HDFS and
HBase storage roles stop last and start first. Regions of a RegionServer
are moved away before it stops and back after it starts. The HBase
balancer stays off for the whole run.

© Flant JSC 2025`)

var rolesLong = templates.LongDesc(`
Restart the selected roles of one role type, one role after another.

NameNodes are restarted per HA nameservice: the standby first, then the
active one, which fails over before it restarts.

© Flant JSC 2025`)

// NewHostsCommand restarts hosts in rolling fashion.
func NewHostsCommand(logger *dkplog.Logger, state *ui.UIState) *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:           "rolling-restart-hosts",
		Aliases:       []string{"rrh"},
		Short:         "Rolling restart of all roles on hosts",
		Long:          hostsLong,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.bind(cmd.Flags())
			return newSession(opts, state, logger.Named("rolling-restart-hosts")).run(cmd.Context(), hostPlan)
		},
	}
	opts.addFlags(cmd.Flags())
	opts.addHostFlags(cmd.Flags())
	return cmd
}

// NewRolesCommand restarts roles of one type in rolling fashion.
func NewRolesCommand(logger *dkplog.Logger, state *ui.UIState) *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:           "rolling-restart-roles",
		Aliases:       []string{"rrr"},
		Short:         "Rolling restart of roles of one type",
		Long:          rolesLong,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.bind(cmd.Flags())
			return newSession(opts, state, logger.Named("rolling-restart-roles")).run(cmd.Context(), rolePlan)
		},
	}
	opts.addFlags(cmd.Flags())
	opts.addRoleFlags(cmd.Flags())
	return cmd
}
