// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIngesterRequired is returned when no ingester is provided.
	ErrIngesterRequired = errors.New("ingester required")

	// ErrUnknownFailurePolicy is returned by ParseFailurePolicy for unknown names.
	ErrUnknownFailurePolicy = errors.New("unknown failure policy")
)

// FailurePolicy decides which failures are answered with a non-2xx status.
// Push-based triggers redeliver on non-2xx, so the policy controls retries.
type FailurePolicy string

const (
	// PolicyRedeliver answers transient failures with 500 so the trigger
	// redelivers, and acknowledges permanent ones with 200.
	PolicyRedeliver FailurePolicy = "redeliver"

	// PolicyAcknowledge answers every failure with 200. Stranded objects
	// are left under raw/ for a backfill run.
	PolicyAcknowledge FailurePolicy = "acknowledge"
)

// ParseFailurePolicy converts a policy name. The empty string selects
// PolicyRedeliver.
func ParseFailurePolicy(name string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(name))) {
	case "", PolicyRedeliver:
		return PolicyRedeliver, nil
	case PolicyAcknowledge:
		return PolicyAcknowledge, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFailurePolicy, name)
	}
}
