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

package backfill

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrListerRequired is returned when an object lister is not provided.
	ErrListerRequired = errors.New("object lister required")

	// ErrIngesterRequired is returned when an ingester is not provided.
	ErrIngesterRequired = errors.New("ingester required")

	// ErrEmptyBucket is returned when Run is called without a bucket.
	ErrEmptyBucket = errors.New("bucket cannot be empty")
)
