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
	dkplog "github.com/deckhouse/deckhouse/pkg/log"

	"github.com/deckhouse/cmux-cli/internal/rollingrestart/usecase"
)

// Compile-time check that LoggerAdapter implements usecase.Logger
var _ usecase.Logger = (*LoggerAdapter)(nil)

// LoggerAdapter adapts *dkplog.Logger to usecase.Logger interface
type LoggerAdapter struct {
	log *dkplog.Logger
}

// NewLoggerAdapter creates a new LoggerAdapter
func NewLoggerAdapter(log *dkplog.Logger) *LoggerAdapter {
	return &LoggerAdapter{log: log}
}

func (a *LoggerAdapter) Debug(msg string, args ...any) {
	a.log.Debug(msg, args...)
}

func (a *LoggerAdapter) Info(msg string, args ...any) {
	a.log.Info(msg, args...)
}

func (a *LoggerAdapter) Warn(msg string, args ...any) {
	a.log.Warn(msg, args...)
}

func (a *LoggerAdapter) Error(msg string, args ...any) {
	a.log.Error(msg, args...)
}
