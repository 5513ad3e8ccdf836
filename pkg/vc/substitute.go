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
	"maps"
)

// Substitute replaces free occurrences of variables in a given expression
// according to a mapping.  When descending into a binder, any name it binds is
// removed from the mapping for the scope of that binder.  The bound parameters
// and triggers of lambdas and quantifiers are never rewritten, whilst let
// values (which lie outside the scope of the let) are substituted using the
// enclosing mapping.
//
// The given expression is never modified.  Subtrees which are unaffected by
// the substitution are shared with the result.
func Substitute(mapping map[string]Expr, e Expr) Expr {
	if len(mapping) == 0 {
		return e
	}
	//
	switch e := e.(type) {
	case *Var:
		if nval, ok := mapping[e.Name]; ok {
			return nval
		}
		//
		return e
	case *Const:
		return e
	case *Apply:
		return &Apply{e.Fun, substituteAll(mapping, e.Args)}
	case *Unary:
		return &Unary{e.Op, Substitute(mapping, e.Arg)}
	case *Binary:
		return &Binary{e.Op, Substitute(mapping, e.Lhs), Substitute(mapping, e.Rhs)}
	case *Multi:
		return &Multi{e.Op, substituteAll(mapping, e.Args)}
	case *IfElse:
		return &IfElse{Substitute(mapping, e.Cond), Substitute(mapping, e.Then), Substitute(mapping, e.Else)}
	case *Bind:
		return substituteBind(mapping, e)
	default:
		panic(fmt.Sprintf("unknown expression %T", e))
	}
}

func substituteBind(mapping map[string]Expr, e *Bind) Expr {
	var (
		binder = e.Binder
		inner  = shadow(mapping, binder.Names())
	)
	//
	switch b := binder.(type) {
	case *Let:
		bindings := make([]Binding, len(b.Bindings))
		//
		for i, binding := range b.Bindings {
			bindings[i] = Binding{binding.Name, Substitute(mapping, binding.Value)}
		}
		//
		binder = &Let{bindings}
	case *Choose:
		// The condition is within scope of the chosen names.
		binder = &Choose{b.Params, b.Triggers, b.Qid, Substitute(inner, b.Cond)}
	case *Lambda, *Quant:
		// unchanged
	default:
		panic(fmt.Sprintf("unknown binder %T", b))
	}
	//
	return &Bind{binder, Substitute(inner, e.Body)}
}

func substituteAll(mapping map[string]Expr, exprs []Expr) []Expr {
	nexprs := make([]Expr, len(exprs))
	//
	for i, e := range exprs {
		nexprs[i] = Substitute(mapping, e)
	}
	//
	return nexprs
}

// Construct a copy of a mapping with the given names removed.  The original
// mapping is returned when none of the names are present.
func shadow(mapping map[string]Expr, names []string) map[string]Expr {
	var nmapping map[string]Expr
	//
	for _, name := range names {
		if _, ok := mapping[name]; ok {
			if nmapping == nil {
				nmapping = maps.Clone(mapping)
			}
			//
			delete(nmapping, name)
		}
	}
	//
	if nmapping == nil {
		return mapping
	}
	//
	return nmapping
}

// FreeVars returns the names which occur free in a given expression.
func FreeVars(e Expr) map[string]bool {
	free := make(map[string]bool)
	collectFreeVars(e, make(map[string]int), free)
	//
	return free
}

func collectFreeVars(e Expr, bound map[string]int, free map[string]bool) {
	switch e := e.(type) {
	case *Var:
		if bound[e.Name] == 0 {
			free[e.Name] = true
		}
	case *Const:
		// nothing
	case *Apply:
		collectAllFreeVars(e.Args, bound, free)
	case *Unary:
		collectFreeVars(e.Arg, bound, free)
	case *Binary:
		collectFreeVars(e.Lhs, bound, free)
		collectFreeVars(e.Rhs, bound, free)
	case *Multi:
		collectAllFreeVars(e.Args, bound, free)
	case *IfElse:
		collectFreeVars(e.Cond, bound, free)
		collectFreeVars(e.Then, bound, free)
		collectFreeVars(e.Else, bound, free)
	case *Bind:
		names := e.Binder.Names()
		//
		if let, ok := e.Binder.(*Let); ok {
			for _, b := range let.Bindings {
				collectFreeVars(b.Value, bound, free)
			}
		}
		//
		for _, n := range names {
			bound[n]++
		}
		//
		switch b := e.Binder.(type) {
		case *Choose:
			collectFreeVars(b.Cond, bound, free)
			//
			for _, trigger := range b.Triggers {
				collectAllFreeVars(trigger, bound, free)
			}
		case *Quant:
			for _, trigger := range b.Triggers {
				collectAllFreeVars(trigger, bound, free)
			}
		}
		//
		collectFreeVars(e.Body, bound, free)
		//
		for _, n := range names {
			bound[n]--
		}
	default:
		panic(fmt.Sprintf("unknown expression %T", e))
	}
}

func collectAllFreeVars(exprs []Expr, bound map[string]int, free map[string]bool) {
	for _, e := range exprs {
		collectFreeVars(e, bound, free)
	}
}
