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
package termio

import (
	"bytes"
	"testing"
)

func Test_Table_00(t *testing.T) {
	table := NewTablePrinter(2)
	table.AddRow("qid", "count")
	table.AddRow("inst_len", "12")
	//
	check_Table(t, table, "      qid | count |\n inst_len |    12 |\n")
}

func Test_Table_01(t *testing.T) {
	table := NewTablePrinter(1)
	table.AddRow("inst_very_long_name")
	table.SetMaxWidth(0, 6)
	//
	check_Table(t, table, " inst.. |\n")
}

func Test_Escape_00(t *testing.T) {
	red := NewAnsiEscape().FgColour(TERM_RED)
	//
	check_String(t, "\033[31m", red.Build())
	check_String(t, "error", red.Wrap("error", false))
	check_String(t, "\033[31merror\033[0m", red.Wrap("error", true))
}

func check_Table(t *testing.T, table *TablePrinter, expected string) {
	var buf bytes.Buffer
	//
	table.AnsiEscapes(false)
	table.Print(&buf)
	check_String(t, expected, buf.String())
}

func check_String(t *testing.T, expected string, actual string) {
	if expected != actual {
		t.Errorf("expected %q, got %q", expected, actual)
	}
}
