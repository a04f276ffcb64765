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
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/deckhouse/cmux-cli/internal/rollingrestart/domain"
	"github.com/deckhouse/cmux-cli/internal/rollingrestart/usecase"
)

const (
	confirmQuestion     = "Are you sure you want to ROLLING RESTART on the above roles (y|n)? "
	intervalQuestion    = "Set SECONDS TO SLEEP between batches (>= 0 secs): "
	maxWaitQuestion     = "Set the MAX WAIT TIME after executing the RESTART command (>= 180 secs): "
	interactiveQuestion = "Do you want to proceed with INTERACTIVE MODE (y|n)? "
)

// confirm asks the operator to go ahead unless --yes was given.
func confirm(ctx context.Context, opts *Options, prompter usecase.Prompter) (bool, error) {
	if opts.Yes {
		return true, nil
	}
	return prompter.AskYesNo(ctx, confirmQuestion)
}

// resolvePolicy builds the run policy from the flags, asking for every value
// that was not given. With --yes missing values take their defaults.
func resolvePolicy(ctx context.Context, opts *Options, prompter usecase.Prompter) (domain.BatchExecutionPolicy, error) {
	interval, err := resolveSeconds(ctx, opts, prompter, flagInterval, opts.Interval, 0, intervalQuestion)
	if err != nil {
		return domain.BatchExecutionPolicy{}, err
	}
	maxWait, err := resolveSeconds(ctx, opts, prompter, flagMaxWait, opts.MaxWait, domain.MinMaxWait, maxWaitQuestion)
	if err != nil {
		return domain.BatchExecutionPolicy{}, err
	}

	interactive := opts.Interactive
	if !opts.isSet(flagInteractive) && !opts.Yes {
		if interactive, err = prompter.AskYesNo(ctx, interactiveQuestion); err != nil {
			return domain.BatchExecutionPolicy{}, err
		}
	}

	policy, err := domain.NewBatchExecutionPolicy(interval, maxWait, interactive, opts.ForceProceed, opts.DryRun)
	if err != nil {
		return domain.BatchExecutionPolicy{}, err
	}
	if opts.isSet(flagEnableBalancer) {
		enable := opts.EnableBalancer
		policy.EnableBalancer = &enable
	}
	return policy, nil
}

func resolveSeconds(ctx context.Context, opts *Options, prompter usecase.Prompter, flag string, value, minimum time.Duration, question string) (time.Duration, error) {
	if opts.isSet(flag) {
		return value, nil
	}
	if opts.Yes {
		return minimum, nil
	}

	answer, err := prompter.AskValue(ctx, question, func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%q is not a number of seconds", s)
		}
		if time.Duration(n)*time.Second < minimum {
			return fmt.Errorf("%d is less than %d", n, int(minimum.Seconds()))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	n, _ := strconv.Atoi(answer)
	return time.Duration(n) * time.Second, nil
}
