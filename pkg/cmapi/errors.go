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
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrUnavailable is wrapped by every APIError.
	ErrUnavailable = errors.New("can not reach the Cloudera Manager API")
	// ErrNoNameservices means the HDFS service has no nameservice at all.
	ErrNoNameservices = errors.New("does not have any configured nameservices")
	// ErrNoHAPair means the requested nameservice has no active/standby pair.
	ErrNoHAPair = errors.New("does not have at least one nameservice configured for high availability")
	// ErrCommandFailed means an asynchronous manager command finished unsuccessfully.
	ErrCommandFailed = errors.New("manager command failed")
)

// APIError is a transport or HTTP level failure.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %s %s: %v", ErrUnavailable, e.Method, e.URL, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s: %s %s: %s: %s", ErrUnavailable, e.Method, e.URL, e.Status, e.Body)
	default:
		return fmt.Sprintf("%s: %s %s: %s", ErrUnavailable, e.Method, e.URL, e.Status)
	}
}

func (e *APIError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUnavailable, e.Err}
	}
	return []error{ErrUnavailable}
}

// IsNotFound reports whether err is a 404 answer of the manager.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// StateTimeoutError is returned when a role did not reach the expected state
// within the requested ceiling.
type StateTimeoutError struct {
	Role     string
	Expected string
	Last     string
	MaxWait  time.Duration
}

func (e *StateTimeoutError) Error() string {
	return fmt.Sprintf("max wait time error: %d seconds have passed since the command was executed, %s is %s, expected %s",
		int(e.MaxWait.Seconds()), e.Role, e.Last, e.Expected)
}
