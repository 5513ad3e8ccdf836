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
	"strings"
	"unicode"
)

// SExp is an S-Expression in the SMT-LIB sense: either a List of zero or more
// S-Expressions, a Symbol or a string Literal.
type SExp interface {
	// AsList checks whether this S-Expression is a list and, if
	// so, returns it.  Otherwise, it returns nil.
	AsList() *List
	// AsSymbol checks whether this S-Expression is a symbol and,
	// if so, returns it.  Otherwise, it returns nil.
	AsSymbol() *Symbol
	// AsLiteral checks whether this S-Expression is a string literal and, if
	// so, returns it.  Otherwise, it returns nil.
	AsLiteral() *Literal
	// String generates a string representation which may (may not) be quoted.
	// Quoting is used to manage symbol names which contain whitespace
	// characters and braces, etc.
	String(quote bool) string
}

// ===================================================================
// List
// ===================================================================

// List represents a list of zero or more S-Expressions.
type List struct {
	Elements []SExp
}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var _ SExp = (*List)(nil)

// EmptyList creates an empty list.
func EmptyList() *List {
	return &List{}
}

// NewList creates a new list from zero or more S-Expressions.
func NewList(elements ...SExp) *List {
	return &List{elements}
}

// NewApp creates a list whose head is a symbol, as is typical for SMT-LIB
// commands and terms.
func NewApp(head string, args ...SExp) *List {
	elements := make([]SExp, 1, len(args)+1)
	elements[0] = NewSymbol(head)
	//
	return &List{append(elements, args...)}
}

// AsList returns the given list.
func (l *List) AsList() *List { return l }

// AsSymbol returns nil for a list.
func (l *List) AsSymbol() *Symbol { return nil }

// AsLiteral returns nil for a list.
func (l *List) AsLiteral() *Literal { return nil }

// Len gets the number of elements in this list.
func (l *List) Len() int { return len(l.Elements) }

// Get the ith element of this list
func (l *List) Get(i int) SExp { return l.Elements[i] }

// Head returns the leading symbol of this list, or "" if there is none.
func (l *List) Head() string {
	if len(l.Elements) > 0 {
		if s := l.Elements[0].AsSymbol(); s != nil {
			return s.Value
		}
	}

	return ""
}

// Append a new element onto this list.
func (l *List) Append(element SExp) {
	l.Elements = append(l.Elements, element)
}

func (l *List) String(quote bool) string {
	var builder strings.Builder
	//
	builder.WriteString("(")
	//
	for i, e := range l.Elements {
		if i != 0 {
			builder.WriteString(" ")
		}

		builder.WriteString(e.String(quote))
	}
	//
	builder.WriteString(")")
	//
	return builder.String()
}

// MatchSymbols matches a list which starts with at least n symbols, of which the
// first m match the given strings.
func (l *List) MatchSymbols(n int, symbols ...string) bool {
	if len(l.Elements) < n || len(symbols) > n {
		return false
	}

	for i := 0; i < len(symbols); i++ {
		switch ith := l.Elements[i].(type) {
		case *Symbol:
			if ith.Value != symbols[i] {
				return false
			}
		default:
			return false
		}
	}

	return true
}

// ===================================================================
// Symbol
// ===================================================================

// Symbol represents a terminating symbol.  Symbols written between vertical
// bars (e.g. |a b|) are stored without their bars.
type Symbol struct {
	Value string
}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var _ SExp = (*Symbol)(nil)

// NewSymbol creates a new symbol from a given string.
func NewSymbol(value string) *Symbol {
	return &Symbol{value}
}

// AsList returns nil for a symbol.
func (s *Symbol) AsList() *List { return nil }

// AsSymbol returns the given symbol
func (s *Symbol) AsSymbol() *Symbol { return s }

// AsLiteral returns nil for a symbol.
func (s *Symbol) AsLiteral() *Literal { return nil }

func (s *Symbol) String(quote bool) string {
	if quote && needsQuotes(s.Value) {
		return "|" + s.Value + "|"
	}
	// No quote required
	return s.Value
}

func needsQuotes(value string) bool {
	if value == "" {
		return true
	}

	for _, r := range value {
		if !isSymbolLetter(r) {
			return true
		}
	}

	return false
}

func isSymbolLetter(r rune) bool {
	return r != '(' && r != ')' && r != '|' && r != '"' && r != ';' && !unicode.IsSpace(r)
}

// ===================================================================
// Literal
// ===================================================================

// Literal represents a string literal, such as those found in echo commands or
// solver error responses.
type Literal struct {
	Value string
}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var _ SExp = (*Literal)(nil)

// NewLiteral creates a new string literal.
func NewLiteral(value string) *Literal {
	return &Literal{value}
}

// AsList returns nil for a literal.
func (s *Literal) AsList() *List { return nil }

// AsSymbol returns nil for a literal.
func (s *Literal) AsSymbol() *Symbol { return nil }

// AsLiteral returns the given literal.
func (s *Literal) AsLiteral() *Literal { return s }

// String always quotes literals, since an unquoted literal would read back as a
// symbol.  Embedded quotes are doubled, as SMT-LIB requires.
func (s *Literal) String(_ bool) string {
	return "\"" + strings.ReplaceAll(s.Value, "\"", "\"\"") + "\""
}
