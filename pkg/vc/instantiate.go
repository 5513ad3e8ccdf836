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
package vc

import (
	"fmt"
)

// Instantiate replaces every universal quantifier whose identifier has an
// entry in the given table by the conjunction of its body instantiated with
// each entry's terms.  All other quantifiers and binders are retained, though
// their bodies are still transformed.  An instantiation whose number of terms
// differs from the number of quantified variables is a fatal error.
func Instantiate(table Table, e Expr) Expr {
	switch e := e.(type) {
	case *Var, *Const:
		return e
	case *Apply:
		return &Apply{e.Fun, instantiateAll(table, e.Args)}
	case *Unary:
		return &Unary{e.Op, Instantiate(table, e.Arg)}
	case *Binary:
		return &Binary{e.Op, Instantiate(table, e.Lhs), Instantiate(table, e.Rhs)}
	case *Multi:
		return &Multi{e.Op, instantiateAll(table, e.Args)}
	case *IfElse:
		return &IfElse{Instantiate(table, e.Cond), Instantiate(table, e.Then), Instantiate(table, e.Else)}
	case *Bind:
		return instantiateBind(table, e)
	default:
		panic(fmt.Sprintf("unknown expression %T", e))
	}
}

func instantiateBind(table Table, e *Bind) Expr {
	body := Instantiate(table, e.Body)
	//
	switch b := e.Binder.(type) {
	case *Let:
		bindings := make([]Binding, len(b.Bindings))
		//
		for i, binding := range b.Bindings {
			bindings[i] = Binding{binding.Name, Instantiate(table, binding.Value)}
		}
		//
		return &Bind{&Let{bindings}, body}
	case *Choose:
		return &Bind{&Choose{b.Params, b.Triggers, b.Qid, Instantiate(table, b.Cond)}, body}
	case *Lambda:
		return &Bind{b, body}
	case *Quant:
		instances, ok := table[b.Qid]
		//
		if b.Kind != Forall || b.Qid == "" || !ok {
			return &Bind{b, body}
		}
		//
		conjuncts := make([]Expr, len(instances))
		//
		for i, inst := range instances {
			conjuncts[i] = InstantiateBody(b.Params, inst, body)
		}
		//
		return &Multi{And, conjuncts}
	default:
		panic(fmt.Sprintf("unknown binder %T", b))
	}
}

// InstantiateBody substitutes the terms of a given instantiation for the
// quantified parameters of a quantifier body.
func InstantiateBody(params []Param, inst *Instantiation, body Expr) Expr {
	if len(params) != len(inst.Terms) {
		panic(fmt.Sprintf("instantiation %d of %s has %d terms for %d variables", inst.Index, inst.Qid,
			len(inst.Terms), len(params)))
	}
	//
	mapping := make(map[string]Expr, len(params))
	//
	for i, p := range params {
		mapping[p.Name] = inst.Terms[i]
	}
	//
	return Substitute(mapping, body)
}

func instantiateAll(table Table, exprs []Expr) []Expr {
	nexprs := make([]Expr, len(exprs))
	//
	for i, e := range exprs {
		nexprs[i] = Instantiate(table, e)
	}
	//
	return nexprs
}
