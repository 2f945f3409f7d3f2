// Copyright 2024 bookworm Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package base

import "fmt"

// StageError is the common shape of pipeline failures. Every stage wraps its
// cause in exactly one of the concrete types below, so callers can dispatch
// with errors.As without string matching.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IngestionError reports a failed dataset download or a corrupt archive.
type IngestionError struct {
	StageError
}

func NewIngestionError(err error) *IngestionError {
	return &IngestionError{StageError{Stage: "data ingestion", Err: err}}
}

// ValidationError reports a missing or empty source table, or a cleaning run
// that left zero rows.
type ValidationError struct {
	StageError
}

func NewValidationError(err error) *ValidationError {
	return &ValidationError{StageError{Stage: "data validation", Err: err}}
}

// TransformationError reports an empty pivot matrix.
type TransformationError struct {
	StageError
}

func NewTransformationError(err error) *TransformationError {
	return &TransformationError{StageError{Stage: "data transformation", Err: err}}
}

// TrainingError reports a pivot matrix too small to satisfy neighbor queries.
type TrainingError struct {
	StageError
}

func NewTrainingError(err error) *TrainingError {
	return &TrainingError{StageError{Stage: "model training", Err: err}}
}

// NotFoundError reports a queried title absent from the pivot index. Callers
// are expected to draw titles from the persisted title list, so hitting this
// means the caller and the artifacts disagree.
type NotFoundError struct {
	Title string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("title not found in pivot index: %q", e.Title)
}

// PosterLookupError reports a title present in the pivot index but absent
// from the final-ratings artifact. The lookup is exact string equality, so
// whitespace or case drift between artifacts surfaces here.
type PosterLookupError struct {
	Title string
}

func (e *PosterLookupError) Error() string {
	return fmt.Sprintf("no poster found for title: %q", e.Title)
}
