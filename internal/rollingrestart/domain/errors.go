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

package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrControlPlaneUnavailable wraps every transport or HTTP failure
	// talking to the cluster manager.
	ErrControlPlaneUnavailable = errors.New("can not reach the cluster manager API")
	// ErrMaxWaitExceeded is returned when a state transition did not
	// confirm within the configured ceiling.
	ErrMaxWaitExceeded = errors.New("max wait time exceeded")
	// ErrCommandFailed is an asynchronous manager command that finished
	// without success.
	ErrCommandFailed = errors.New("cluster manager command failed")

	ErrBalancerTool = errors.New("can not set the auto balancer")
	ErrExport       = errors.New("can not export region assignment")
	ErrDrain        = errors.New("can not empty region server")
	ErrRestore      = errors.New("can not import region assignment")

	ErrNameserviceMissing = errors.New("does not have any configured nameservices")
	ErrNoHAPeer           = errors.New("does not have at least one nameservice configured for high availability")

	// ErrOperatorAbort is a clean termination requested by the operator.
	ErrOperatorAbort = errors.New("stopped by operator")
)

// MaxWaitError reports the ceiling that was exceeded.
type MaxWaitError struct {
	Role     string
	Expected RunState
	Last     RunState
	MaxWait  time.Duration
}

func (e *MaxWaitError) Error() string {
	return fmt.Sprintf("%s: %s did not become %s (last state %s): %d seconds have passed since the command was executed",
		ErrMaxWaitExceeded, e.Role, e.Expected, e.Last, int(e.MaxWait.Seconds()))
}

func (e *MaxWaitError) Unwrap() error {
	return ErrMaxWaitExceeded
}
