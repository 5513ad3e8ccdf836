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
	"github.com/consensys/go-smtcheck/pkg/vc"
)

// Instrument rewrites a query so that every universally quantified assumption
// with entries in the table is replaced by one named axiom per instantiation.
// The axioms are added to the query's local declarations, so they can be
// identified in an unsat core.  This also returns the quantifiers which were
// replaced (by identifier), or nil when nothing was replaced.
func Instrument(query *vc.Query, table vc.Table) (*vc.Query, map[string]*vc.Bind) {
	var (
		local    = append([]vc.Decl{}, query.Local...)
		replaced = make(map[string]*vc.Bind)
	)
	//
	assertion := instrumentStmt(query.Assertion, table, &local, replaced)
	//
	if len(replaced) == 0 {
		return query, nil
	}
	//
	return &vc.Query{Local: local, Assertion: assertion}, replaced
}

func instrumentStmt(stmt vc.Stmt, table vc.Table, local *[]vc.Decl, replaced map[string]*vc.Bind) vc.Stmt {
	switch s := stmt.(type) {
	case *vc.Block:
		var stmts []vc.Stmt
		//
		for _, c := range s.Stmts {
			if c = instrumentStmt(c, table, local, replaced); c != nil {
				stmts = append(stmts, c)
			}
		}
		//
		return &vc.Block{Stmts: stmts}
	case *vc.Assume:
		quant, params, body := trackedForall(s.Expr)
		instances := table[quant]
		//
		if len(instances) == 0 {
			return s
		}
		//
		for _, inst := range instances {
			instance := vc.InstantiateBody(params, inst, body)
			*local = append(*local, &vc.Axiom{Expr: instance, Name: vc.InstanceName(inst.Index)})
		}
		//
		replaced[quant] = s.Expr.(*vc.Bind)
		// Assumption is now redundant
		return nil
	default:
		return s
	}
}

// trackedForall destructures a universal quantifier with an identifier.
func trackedForall(e vc.Expr) (string, []vc.Param, vc.Expr) {
	if bind, ok := e.(*vc.Bind); ok {
		if q, ok := bind.Binder.(*vc.Quant); ok && q.Kind == vc.Forall && q.Qid != "" {
			return q.Qid, q.Params, bind.Body
		}
	}
	//
	return "", nil, nil
}
