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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/consensys/go-smtcheck/pkg/check"
	"github.com/consensys/go-smtcheck/pkg/report"
	"github.com/consensys/go-smtcheck/pkg/smt"
	"github.com/consensys/go-smtcheck/pkg/util"
	"github.com/consensys/go-smtcheck/pkg/verifier"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [flags] obligation_file(s)",
	Short: "check verification conditions against an SMT solver.",
	Long: `Check every obligation in the given file(s) against an SMT solver, reporting
	those which could not be proven.  Exits with a non-zero status if any
	obligation fails.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		config := readConfig(cmd)
		//
		if GetFlag(cmd, "rerun-with-profile") {
			config.Profile = "canceled"
		}
		//
		os.Exit(runVerifier(config, args))
	},
}

// runVerifier checks the obligations in the given files, returning the exit
// status.
func runVerifier(config verifier.Config, filenames []string) int {
	var (
		bundles  = readObligations(filenames)
		reporter = report.NewConsole()
		stats    check.Stats
	)
	//
	factory, err := smt.NewProcessFactory(config.Solver)
	if err != nil {
		fmt.Println(err)
		return 2
	}
	// Cancel outstanding queries on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	//
	for i, bundle := range bundles {
		result, err := verifier.NewVerifier(config, bundle, factory).Run(ctx, reporter)
		//
		if err != nil {
			reportFailure(filenames[i], err)
			return 2
		}
		//
		log.Debugf("run %s checked %d buckets (%s initialising, %s solving)", result.RunId,
			result.Buckets, result.Times.Init, result.Times.Run)
		//
		stats.Merge(result.Stats)
	}
	//
	fmt.Printf("verification results:: %d verified, %d errors\n", stats.Verified, stats.Errors)
	//
	if stats.Errors > 0 {
		return 1
	}
	//
	return 0
}

func reportFailure(filename string, err error) {
	var ioerr *util.IOError
	//
	if errors.As(err, &ioerr) {
		fmt.Printf("%s: %s\n", filename, ioerr)
	} else if errors.Is(err, context.Canceled) {
		fmt.Println("verification interrupted")
	} else {
		fmt.Printf("%s: %s\n", filename, err)
	}
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	addCheckFlags(verifyCmd)
	verifyCmd.Flags().String("profile", "off", "profile quantifier instantiations (off, canceled or all)")
	verifyCmd.Flags().Bool("rerun-with-profile", false, "profile queries which exhaust their resource limit")
}
