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

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile [flags] obligation_file(s)",
	Short: "profile quantifier instantiations.",
	Long: `Check every obligation in the given file(s), recording the quantifier
	instantiations made by the solver.  A summary of the most instantiated
	quantifiers is reported for each module, along with those instantiations
	actually needed by each proof.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		config := readConfig(cmd)
		// Profile everything unless told otherwise
		if !cmd.Flags().Changed("profile") {
			config.Profile = "all"
		}
		//
		os.Exit(runVerifier(config, args))
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	addCheckFlags(profileCmd)
	profileCmd.Flags().String("profile", "all", "which queries to profile (canceled or all)")
}
