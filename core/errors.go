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

import "errors"

var (
	// ErrMalformedTrigger indicates a trigger payload lacks a usable bucket or name.
	ErrMalformedTrigger = errors.New("malformed trigger")

	// ErrEmptyBucket indicates the Bucket field is empty.
	ErrEmptyBucket = errors.New("bucket cannot be empty")

	// ErrEmptyName indicates the Name field is empty.
	ErrEmptyName = errors.New("object name cannot be empty")

	// ErrInvalidName indicates the object name contains characters no
	// storage backend accepts.
	ErrInvalidName = errors.New("invalid object name")

	// ErrInvalidRecord indicates a Record failed validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrEmptyVector indicates a Record has no embedding.
	ErrEmptyVector = errors.New("vector cannot be empty")
)
