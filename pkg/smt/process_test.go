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
	"context"
	"testing"

	"github.com/consensys/go-smtcheck/pkg/vc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Process_00(t *testing.T) {
	factory := z3(t)
	ctx := context.Background()
	//
	transport, err := factory.Start(ctx, vc.Default)
	require.NoError(t, err)
	//
	defer transport.Close()
	//
	require.NoError(t, transport.Write("(declare-const x Int)"))
	require.NoError(t, transport.Write("(assert (> x 0))"))
	require.NoError(t, transport.Write("(check-sat)"))
	//
	response, err := transport.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sat"}, response)
}

func Test_Process_01(t *testing.T) {
	session, err := Open(context.Background(), z3(t), vc.Default, Logs{})
	require.NoError(t, err)
	//
	defer session.Close()
	//
	commands, err := vc.ParseCommands("test", `(set-option :air_recommended_options true)
(declare-fun P (Int) Bool)
(axiom (forall ((x Int)) (! (P x) :pattern ((P x)) :qid inst_p)))
(check-valid (local (declare-const y Int)) (block (assert "p" (P y)) (assert "q" (> y 0))))`)
	require.NoError(t, err)
	//
	for _, c := range commands[:3] {
		require.NoError(t, session.Declare(c))
	}
	//
	result, err := session.CheckValid(context.Background(), commands[3].(*vc.CheckValid).Query, nil)
	require.NoError(t, err)
	require.IsType(t, &Invalid{}, result)
	assert.Equal(t, 1, result.(*Invalid).Goal)
	//
	result, err = session.CheckValidAgain(context.Background(), false, nil)
	require.NoError(t, err)
	assert.Equal(t, &Valid{}, result)
	require.NoError(t, session.FinishQuery())
}

func Test_Process_02(t *testing.T) {
	sh, err := NewProcessFactory("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	// A solver which fails immediately
	transport, err := StartProcess(sh.Path, "-c", "read line; echo 'bad option' >&2; exit 1")
	require.NoError(t, err)
	//
	_, err = transport.Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad option")
	assert.Error(t, transport.Close())
}

// z3 returns a factory for the solver, skipping the test when it is not
// installed.
func z3(t *testing.T) *ProcessFactory {
	factory, err := NewProcessFactory("z3")
	if err != nil {
		t.Skip("z3 not available")
	}
	//
	return factory
}
