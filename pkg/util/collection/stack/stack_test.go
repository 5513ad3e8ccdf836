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
package stack

import (
	"testing"
)

func Test_Stack_00(t *testing.T) {
	s := NewStack[int]()
	//
	if !s.IsEmpty() {
		t.Errorf("new stack not empty")
	}
	//
	s.Push(1)
	s.Push(2)
	check_Pop(t, s, 2)
	s.Push(3)
	check_Pop(t, s, 3)
	check_Pop(t, s, 1)
	//
	if !s.IsEmpty() {
		t.Errorf("stack not empty after popping everything")
	}
}

func Test_Stack_01(t *testing.T) {
	s := NewStack[string]()
	//
	defer func() {
		if recover() == nil {
			t.Errorf("pop from empty stack did not panic")
		}
	}()
	//
	s.Pop()
}

func check_Pop(t *testing.T, s *Stack[int], expected int) {
	if item := s.Pop(); item != expected {
		t.Errorf("expected %d, got %d", expected, item)
	}
}
