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

package core

import (
	"fmt"
	"strings"
	"unicode"
)

// ValidateRequest checks that a request names a bucket and an object.
// All failures wrap ErrMalformedTrigger.
func ValidateRequest(req Request) error {
	if strings.TrimSpace(req.Bucket) == "" {
		return fmt.Errorf("%w: %w", ErrMalformedTrigger, ErrEmptyBucket)
	}
	if req.Name == "" {
		return fmt.Errorf("%w: %w", ErrMalformedTrigger, ErrEmptyName)
	}
	if strings.IndexFunc(req.Name, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: %w: %q", ErrMalformedTrigger, ErrInvalidName, req.Name)
	}
	return nil
}

// ValidateRecord checks that a record is complete enough to be indexed.
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}
	if record.ID == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidRecord)
	}
	if len(record.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyVector)
	}
	return nil
}
