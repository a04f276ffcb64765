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

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	cliflag "k8s.io/component-base/cli/flag"

	dkplog "github.com/deckhouse/deckhouse/pkg/log"

	rollingrestart "github.com/deckhouse/cmux-cli/internal/rollingrestart/cmd"
	"github.com/deckhouse/cmux-cli/internal/ui"
	"github.com/deckhouse/cmux-cli/internal/version"
)

const (
	exitError       = 1
	exitInterrupted = 130
)

type RootCommand struct {
	cmd    *cobra.Command
	logger *dkplog.Logger
	state  *ui.UIState
	errOut io.Writer
}

func NewRootCommand() *RootCommand {
	logger := dkplog.NewLogger(
		dkplog.WithLevel(
			slog.Level(
				dkplog.LogLevelFromStr(
					os.Getenv("LOG_LEVEL"),
				),
			),
		),
	)

	rootCmd := &RootCommand{
		logger: logger.Named("cmux"),
		state:  ui.NewUIState(os.Stdout, term.IsTerminal(int(os.Stdout.Fd()))),
		errOut: os.Stderr,
	}

	rootCmd.cmd = &cobra.Command{
		Use:           "cmux",
		Short:         "cmux operates clusters managed by Cloudera Manager",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.registerCommands()
	rootCmd.cmd.SetGlobalNormalizationFunc(cliflag.WordSepNormalizeFunc)

	return rootCmd
}

func (r *RootCommand) registerCommands() {
	r.cmd.AddCommand(rollingrestart.NewHostsCommand(r.logger, r.state))
	r.cmd.AddCommand(rollingrestart.NewRolesCommand(r.logger, r.state))
}

// Execute runs the command line and returns the process exit code.
func (r *RootCommand) Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return r.execute(ctx)
}

// execute runs the command line until it returns or ctx is done.
func (r *RootCommand) execute(ctx context.Context) int {
	err := r.cmd.ExecuteContext(ctx)
	if ctx.Err() != nil {
		r.state.Restore()
		fmt.Fprintln(r.errOut)
		fmt.Fprintln(r.errOut, color.RedString("Interrupted"))
		return exitInterrupted
	}
	if err != nil {
		r.state.Restore()
		r.logger.Debug("Command failed", slog.String("error", err.Error()))
		fmt.Fprintln(r.errOut, color.RedString("Error: %s", err))
		return exitError
	}
	return 0
}
