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
package smt

import (
	"github.com/consensys/go-smtcheck/pkg/vc"
)

// RecommendedOptionsName is a pseudo option which expands into the set of
// solver options known to work well for generated obligations.
const RecommendedOptionsName = "air_recommended_options"

// RecommendedOptions returns the concrete options enabled by the recommended
// options bundle.  Model-based quantifier instantiation is disabled, since
// obligations carry their own triggers.
func RecommendedOptions() []*vc.SetOption {
	return []*vc.SetOption{
		{Name: "auto_config", Value: "false"},
		{Name: "smt.mbqi", Value: "false"},
		{Name: "smt.case_split", Value: "3"},
		{Name: "smt.qi.eager_threshold", Value: "100.0"},
		{Name: "smt.delay_units", Value: "true"},
		{Name: "smt.arith.solver", Value: "2"},
		{Name: "smt.arith.nl", Value: "false"},
		{Name: "pi.enabled", Value: "false"},
		{Name: "rewriter.sort_disjunctions", Value: "false"},
	}
}

// ProverOptions returns the options which configure a spin-off session for a
// given decision procedure, issued after everything inherited from its parent.
func ProverOptions(prover vc.Prover) []*vc.SetOption {
	switch prover {
	case vc.Default, vc.BitVector:
		return nil
	case vc.Nonlinear, vc.Singular:
		return []*vc.SetOption{
			{Name: "smt.arith.solver", Value: "6"},
			{Name: "smt.arith.nl", Value: "true"},
		}
	default:
		panic("unknown prover")
	}
}

// expandOption expands pseudo options into their concrete counterparts.
func expandOption(option *vc.SetOption) []*vc.SetOption {
	if option.Name == RecommendedOptionsName {
		if option.Value == "true" {
			return RecommendedOptions()
		}
		//
		return nil
	}
	//
	return []*vc.SetOption{option}
}
