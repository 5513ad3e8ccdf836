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
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/consensys/go-smtcheck/pkg/plan"
	"github.com/consensys/go-smtcheck/pkg/util/termio"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan [flags] obligation_file(s)",
	Short: "show how obligations would be bucketed.",
	Long: `Show the buckets into which the functions of each obligation file are
	grouped, along with the size of the context each bucket needs.  No solver
	is run.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		filter := &plan.UserFilter{
			Modules:   GetStringArray(cmd, "verify-module"),
			Functions: GetStringArray(cmd, "verify-function"),
		}
		//
		for i, bundle := range readObligations(args) {
			buckets, err := plan.Plan(bundle.Program(), filter)
			if err != nil {
				fmt.Printf("%s: %s\n", args[i], err)
				os.Exit(2)
			}
			//
			printBuckets(buckets, GetUint(cmd, "textwidth"))
		}
	},
}

func printBuckets(buckets []*plan.Bucket, width uint) {
	var (
		tp   = termio.NewTablePrinter(4)
		bold = termio.BoldAnsiEscape()
	)
	//
	tp.AddRow("bucket", "log", "context", "functions")
	//
	for i := 0; i < 4; i++ {
		tp.SetEscape(uint(i), 0, bold)
	}
	//
	for _, b := range buckets {
		tp.AddRow(b.Id.String(), b.Id.FileName(), fmt.Sprintf("%d", len(b.Context)),
			strings.Join(b.Functions, ", "))
	}
	//
	tp.SetMaxWidth(3, width)
	tp.AnsiEscapes(termio.IsTerminal(os.Stdout))
	tp.Print(os.Stdout)
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringArray("verify-module", nil, "include only the given module(s)")
	planCmd.Flags().StringArray("verify-function", nil, "include only the given function(s)")
	planCmd.Flags().Uint("textwidth", 80, "maximum width of the functions column")
}
