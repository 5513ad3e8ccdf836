// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package check

import (
	"fmt"

	"github.com/consensys/go-smtcheck/pkg/smt"
)

// InternalError indicates a defect in the obligations being checked, or in
// this checker itself, rather than a verification failure.  Internal errors
// are fatal for the run.
type InternalError struct {
	// Description of the obligation being checked.
	Desc string
	// Underlying fault.
	Err error
}

// NewInternalError constructs an internal error for an obligation.
func NewInternalError(desc string, err error) *InternalError {
	return &InternalError{desc, err}
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error checking %s: %s", e.Desc, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// ResultError converts a fault result into an error.
type ResultError struct {
	Result smt.ValidityResult
}

func (e *ResultError) Error() string {
	switch r := e.Result.(type) {
	case *smt.TypeError:
		return r.String()
	case *smt.UnexpectedOutput:
		return r.String()
	default:
		return fmt.Sprintf("unexpected %s result", r.Classify())
	}
}
