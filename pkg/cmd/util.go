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

	"github.com/consensys/go-smtcheck/pkg/obligation"
	"github.com/consensys/go-smtcheck/pkg/util/source"
	"github.com/consensys/go-smtcheck/pkg/verifier"
	"github.com/spf13/cobra"
)

// GetFlag gets an expected flag, or exits if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// GetUint gets an expected unsigned integer flag, or exits if an error arises.
func GetUint(cmd *cobra.Command, flag string) uint {
	r, err := cmd.Flags().GetUint(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// GetString gets an expected string flag, or exits if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// GetStringArray gets an expected string array flag, or exits if an error
// arises.
func GetStringArray(cmd *cobra.Command, flag string) []string {
	r, err := cmd.Flags().GetStringArray(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// readConfig reads the configuration file (if any), and then applies any
// options given explicitly on the command line.
func readConfig(cmd *cobra.Command) verifier.Config {
	config, err := verifier.LoadConfig(GetString(cmd, "config"))
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	flags := cmd.Flags()
	//
	if flags.Changed("solver") {
		config.Solver = GetString(cmd, "solver")
	}
	//
	if flags.Changed("solver-version") {
		config.SolverVersion = GetString(cmd, "solver-version")
	}
	//
	if flags.Changed("rlimit") {
		config.Rlimit = uint64(GetUint(cmd, "rlimit"))
	}
	//
	if flags.Changed("num-threads") {
		config.NumThreads = GetUint(cmd, "num-threads")
	}
	//
	if flags.Changed("multiple-errors") {
		config.MultipleErrors = GetUint(cmd, "multiple-errors")
	}
	//
	if flags.Changed("profile") {
		config.Profile = GetString(cmd, "profile")
	}
	//
	if flags.Changed("log-dir") {
		config.LogDir = GetString(cmd, "log-dir")
	}
	//
	if flags.Changed("metrics-file") {
		config.MetricsFile = GetString(cmd, "metrics-file")
	}
	//
	if flags.Changed("smt-option") {
		if config.SmtOptions == nil {
			config.SmtOptions = make(map[string]string)
		}
		//
		for _, option := range GetStringArray(cmd, "smt-option") {
			name, value, ok := strings.Cut(option, "=")
			if !ok {
				fmt.Printf("malformed solver option \"%s\" (expected name=value)\n", option)
				os.Exit(2)
			}
			//
			config.SmtOptions[name] = value
		}
	}
	//
	config.ExpandErrors = config.ExpandErrors || GetFlag(cmd, "expand-errors")
	config.NoAutoRecommends = config.NoAutoRecommends || GetFlag(cmd, "no-auto-recommends-check")
	config.LogAll = config.LogAll || GetFlag(cmd, "log-all")
	config.LogInitial = config.LogInitial || GetFlag(cmd, "log-initial")
	config.LogFinal = config.LogFinal || GetFlag(cmd, "log-final")
	config.LogSmt = config.LogSmt || GetFlag(cmd, "log-smt")
	config.Trace = config.Trace || GetFlag(cmd, "trace")
	config.Modules = append(config.Modules, GetStringArray(cmd, "verify-module")...)
	config.Functions = append(config.Functions, GetStringArray(cmd, "verify-function")...)
	//
	if err := config.Validate(); err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return config
}

// readObligations reads the given obligation files, exiting after printing
// any syntax errors found.
func readObligations(filenames []string) []*obligation.Bundle {
	var (
		bundles []*obligation.Bundle
		failed  bool
	)
	//
	for _, filename := range filenames {
		bundle, errs, err := obligation.Load(filename)
		//
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		//
		for _, e := range errs {
			printSyntaxError(&e)
		}
		//
		failed = failed || len(errs) > 0
		bundles = append(bundles, bundle)
	}
	//
	if failed {
		os.Exit(2)
	}
	//
	return bundles
}

// Print a syntax error with appropriate highlighting.
func printSyntaxError(err *source.SyntaxError) {
	span := err.Span()
	line := err.FirstEnclosingLine()
	offset := span.Start() - line.Start()
	// Don't highlight beyond the end of the line
	length := max(1, min(line.Length()-offset, span.Length()))
	//
	fmt.Printf("%s:%d:%d-%d %s\n", err.SourceFile().Filename(),
		line.Number(), 1+offset, 1+offset+length, err.Message())
	fmt.Println()
	fmt.Println(line.String())
	fmt.Print(strings.Repeat(" ", offset))
	fmt.Println(strings.Repeat("^", length))
}

// addCheckFlags registers the flags shared by commands which run the solver.
func addCheckFlags(cmd *cobra.Command) {
	cmd.Flags().String("solver", "z3", "path of the solver binary")
	cmd.Flags().String("solver-version", "", "constraint which the solver version must satisfy (e.g. \">= 4.12\")")
	cmd.Flags().Uint("rlimit", 10, "resource limit per query (in approximate seconds)")
	cmd.Flags().Uint("num-threads", 1, "number of buckets checked in parallel")
	cmd.Flags().Uint("multiple-errors", 2, "times a failed query is checked again for further errors (0 reports only the first)")
	cmd.Flags().Bool("expand-errors", false, "check the parts of failed assertions separately")
	cmd.Flags().Bool("no-auto-recommends-check", false, "do not recheck failed functions for recommends")
	cmd.Flags().String("log-dir", ".smtcheck-log", "directory for solver logs and traces")
	cmd.Flags().Bool("log-all", false, "write every solver log")
	cmd.Flags().Bool("log-initial", false, "write the commands initially given to each solver")
	cmd.Flags().Bool("log-final", false, "write the commands finally given to each solver")
	cmd.Flags().Bool("log-smt", false, "write the raw transcript of each solver")
	cmd.Flags().Bool("trace", false, "report progress through each bucket")
	cmd.Flags().StringArray("smt-option", nil, "set an additional solver option (name=value)")
	cmd.Flags().StringArray("verify-module", nil, "check only the given module(s)")
	cmd.Flags().StringArray("verify-function", nil, "check only the given function(s)")
	cmd.Flags().String("metrics-file", "", "write metrics in Prometheus text format")
}
