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

package adapters

import (
	"errors"

	"github.com/deckhouse/cmux-cli/internal/rollingrestart/domain"
	"github.com/deckhouse/cmux-cli/pkg/cmapi"
	"github.com/deckhouse/cmux-cli/pkg/hbasetools"
)

// classified keeps the message of the client error and adds the domain
// sentinel to its chain.
type classified struct {
	kind  error
	cause error
}

func (e *classified) Error() string {
	return e.cause.Error()
}

func (e *classified) Unwrap() []error {
	return []error{e.kind, e.cause}
}

func classify(kind, cause error) error {
	return &classified{kind: kind, cause: cause}
}

// translateAPIError maps manager client failures to the domain taxonomy.
func translateAPIError(err error) error {
	if err == nil {
		return nil
	}

	var timeout *cmapi.StateTimeoutError
	if errors.As(err, &timeout) {
		return &domain.MaxWaitError{
			Role:     timeout.Role,
			Expected: domain.RunState(timeout.Expected),
			Last:     domain.RunState(timeout.Last),
			MaxWait:  timeout.MaxWait,
		}
	}

	switch {
	case errors.Is(err, cmapi.ErrNoNameservices):
		return classify(domain.ErrNameserviceMissing, err)
	case errors.Is(err, cmapi.ErrNoHAPair):
		return classify(domain.ErrNoHAPeer, err)
	case errors.Is(err, cmapi.ErrCommandFailed):
		return classify(domain.ErrCommandFailed, err)
	case errors.Is(err, cmapi.ErrUnavailable):
		return classify(domain.ErrControlPlaneUnavailable, err)
	}
	return err
}

var toolFailures = map[hbasetools.Op]error{
	hbasetools.OpBalancer: domain.ErrBalancerTool,
	hbasetools.OpExport:   domain.ErrExport,
	hbasetools.OpEmpty:    domain.ErrDrain,
	hbasetools.OpImport:   domain.ErrRestore,
}

// translateToolError maps a failed hbase-manager call to the domain
// taxonomy. Errors that happen before the tool runs get fallback.
func translateToolError(err, fallback error) error {
	if err == nil {
		return nil
	}
	var toolErr *hbasetools.ToolError
	if errors.As(err, &toolErr) {
		if kind, ok := toolFailures[toolErr.Op]; ok {
			return classify(kind, err)
		}
	}
	return classify(fallback, err)
}
