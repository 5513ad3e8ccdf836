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
package sexp

import (
	"fmt"

	"github.com/consensys/go-smtcheck/pkg/util/source"
)

// SymbolRule is responsible for converting a terminating expression (i.e. a
// symbol or literal) into an expression type T.  For example, a numeral or a
// variable reference.  The boolean indicates whether the rule applied.
type SymbolRule[T comparable] func(string) (T, bool, error)

// ListRule is responsible for converting a list with a given sequence of zero
// or more arguments into an expression type T.
type ListRule[T comparable] func(*List) (T, []source.SyntaxError)

// RecursiveRule is a wrapper for translating lists whose elements can be built
// by recursively reusing the enclosing translator.  Observe that the arguments
// are already translated into the correct form.
type RecursiveRule[T comparable] func(string, []T) (T, error)

// Translator is a generic mechanism for translating S-Expressions into a structured
// form.
type Translator[T comparable] struct {
	srcfile *source.File
	// Rules for parsing lists
	lists map[string]ListRule[T]
	// Fallback rule for generic user-defined lists.
	listDefault ListRule[T]
	// Rules for parsing symbols
	symbols []SymbolRule[T]
	// Maps S-Expressions to their spans in the original source file.
	oldSrcmap *source.Map[SExp]
	// Maps translated expressions to their spans in the original source file.
	newSrcmap *source.Map[T]
}

// NewTranslator constructs a new Translator instance.
func NewTranslator[T comparable](srcmap *source.Map[SExp]) *Translator[T] {
	return &Translator[T]{
		srcfile:   srcmap.Source(),
		lists:     make(map[string]ListRule[T]),
		symbols:   make([]SymbolRule[T], 0),
		oldSrcmap: srcmap,
		newSrcmap: source.NewSourceMap[T](srcmap.Source()),
	}
}

// SourceMap returns the source map maintained for terms constructed by this
// translator.
func (p *Translator[T]) SourceMap() *source.Map[T] {
	return p.newSrcmap
}

// SpanOf gets the span associated with a given S-Expression in the original
// source file.
func (p *Translator[T]) SpanOf(sexp SExp) source.Span {
	return p.oldSrcmap.Get(sexp)
}

// Translate a given S-Expression into the structured representation T.
func (p *Translator[T]) Translate(sexp SExp) (T, []source.SyntaxError) {
	return translateSExp(p, sexp)
}

// AddListRule adds a raw list rule to this expression translator.
func (p *Translator[T]) AddListRule(name string, rule ListRule[T]) {
	p.lists[name] = rule
}

// AddRecursiveListRule adds a new list translator to this expression translator.
func (p *Translator[T]) AddRecursiveListRule(name string, t RecursiveRule[T]) {
	p.lists[name] = p.createRecursiveListRule(t)
}

// AddDefaultListRule adds a default rule to be applied when no other list
// rules apply.
func (p *Translator[T]) AddDefaultListRule(rule ListRule[T]) {
	p.listDefault = rule
}

// AddSymbolRule adds a new symbol translator to this expression translator.
func (p *Translator[T]) AddSymbolRule(t SymbolRule[T]) {
	p.symbols = append(p.symbols, t)
}

func (p *Translator[T]) createRecursiveListRule(t RecursiveRule[T]) ListRule[T] {
	return func(l *List) (T, []source.SyntaxError) {
		var (
			empty  T
			errors []source.SyntaxError
		)
		// Extract the "head" of the list.
		if len(l.Elements) == 0 || l.Elements[0].AsSymbol() == nil {
			return empty, p.SyntaxErrors(l, "invalid list")
		}
		// Translate arguments
		args := make([]T, len(l.Elements)-1)
		//
		for i, s := range l.Elements[1:] {
			var errs []source.SyntaxError
			args[i], errs = translateSExp(p, s)
			errors = append(errors, errs...)
		}
		//
		if len(errors) > 0 {
			return empty, errors
		}
		// Apply constructor
		term, err := t(l.Head(), args)
		if err != nil {
			return empty, p.SyntaxErrors(l, err.Error())
		}
		//
		return term, nil
	}
}

// SyntaxError constructs a suitable syntax error for a given S-Expression.
//
//nolint:revive
func (p *Translator[T]) SyntaxError(s SExp, msg string) *source.SyntaxError {
	return p.srcfile.SyntaxError(p.oldSrcmap.Get(s), msg)
}

// SyntaxErrors constructs a suitable syntax error for a given S-Expression.
//
//nolint:revive
func (p *Translator[T]) SyntaxErrors(s SExp, msg string) []source.SyntaxError {
	return []source.SyntaxError{*p.SyntaxError(s, msg)}
}

// Translate an S-Expression into the target form.  Observe that this can still
// fail in the event that the given S-Expression does not describe a
// well-formed term.
func translateSExp[T comparable](p *Translator[T], s SExp) (T, []source.SyntaxError) {
	var empty T

	switch e := s.(type) {
	case *List:
		return translateSExpList(p, e)
	case *Symbol:
		for _, rule := range p.symbols {
			node, ok, err := rule(e.Value)
			if ok && err != nil {
				return empty, p.SyntaxErrors(s, err.Error())
			} else if ok {
				mapToSExp(p, node, s)
				return node, nil
			}
		}
	}
	//
	return empty, p.SyntaxErrors(s, fmt.Sprintf("unexpected term %s", s.String(true)))
}

// Translate a list of S-Expressions.  The kind of term is determined by the
// first element of the list, falling back on the default rule when no
// specific rule is registered.
func translateSExpList[T comparable](p *Translator[T], l *List) (T, []source.SyntaxError) {
	var (
		empty  T
		node   T
		errors []source.SyntaxError
	)
	//
	if t := p.lists[l.Head()]; t != nil && l.Head() != "" {
		node, errors = t(l)
	} else if p.listDefault != nil {
		node, errors = p.listDefault(l)
	} else {
		return empty, p.SyntaxErrors(l, "unknown list encountered")
	}
	//
	if len(errors) == 0 {
		mapToSExp(p, node, l)
	}
	//
	return node, errors
}

// Add a mapping from a given item to the S-expression from which it was
// generated, unless a nested rule has already mapped it.
func mapToSExp[T comparable](p *Translator[T], item T, sexp SExp) {
	if !p.newSrcmap.Has(item) {
		p.newSrcmap.Put(item, p.oldSrcmap.Get(sexp))
	}
}
