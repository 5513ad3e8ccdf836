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
package profile

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/go-smtcheck/pkg/vc"
)

// UnsupportedTermError indicates a term whose shape cannot be converted into
// an expression.
type UnsupportedTermError struct {
	Term string
}

func (e *UnsupportedTermError) Error() string {
	return fmt.Sprintf("unsupported term %s", e.Term)
}

// Convert a term from the trace into an expression.  Only integer literals,
// boolean constants, uninterpreted constants and function applications over
// these are supported.
func (p *TraceReader) Convert(id string) (vc.Expr, error) {
	t, ok := p.terms[id]
	if !ok {
		return nil, &UnsupportedTermError{id}
	}
	//
	switch {
	case t.Kind != AppTerm:
		return nil, &UnsupportedTermError{p.String(id)}
	case t.Meaning != "":
		if t.Name == "Int" && t.Theory == "arith" && len(t.Args) == 0 {
			if value, ok := parseInt(t.Meaning); ok {
				return &vc.Const{Int: value}, nil
			}
		}
		//
		return nil, &UnsupportedTermError{p.String(id)}
	case len(t.Args) == 0 && (t.Name == "true" || t.Name == "false"):
		return vc.NewBool(t.Name == "true"), nil
	case len(t.Args) == 0:
		return vc.NewVar(t.Name), nil
	}
	//
	args := make([]vc.Expr, len(t.Args))
	//
	for i, a := range t.Args {
		arg, err := p.Convert(a)
		if err != nil {
			return nil, err
		}
		//
		args[i] = arg
	}
	//
	return vc.NewApply(t.Name, args...), nil
}

// parseInt parses an integer meaning, which is either a numeral or a negated
// numeral "(- n)".
func parseInt(meaning string) (*big.Int, bool) {
	var (
		value    big.Int
		negative = false
	)
	//
	if strings.HasPrefix(meaning, "(-") && strings.HasSuffix(meaning, ")") {
		meaning = strings.TrimSpace(meaning[2 : len(meaning)-1])
		negative = true
	}
	//
	if _, ok := value.SetString(meaning, 10); !ok {
		return nil, false
	} else if negative {
		value.Neg(&value)
	}
	//
	return &value, true
}
