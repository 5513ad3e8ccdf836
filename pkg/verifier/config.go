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
package verifier

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/consensys/go-smtcheck/pkg/check"
	"github.com/consensys/go-smtcheck/pkg/plan"
	"github.com/consensys/go-smtcheck/pkg/profile"
	"github.com/consensys/go-smtcheck/pkg/vc"
	"gopkg.in/yaml.v3"
)

// RlimitPerSecond converts the resource limit given by the user (roughly in
// seconds) into solver resource units.
const RlimitPerSecond = 3_000_000

// Log file suffixes.
const (
	InitialLogSuffix = ".air"
	FinalLogSuffix   = "-final.air"
	SmtLogSuffix     = ".smt2"
	TraceSuffix      = ".trace"
)

// Config determines how a run of the verifier behaves.  A configuration can be
// loaded from a YAML file, with command-line flags overriding what it sets.
type Config struct {
	// Solver binary (looked up on the PATH).
	Solver string `yaml:"solver"`
	// Semantic version constraint the solver must satisfy (empty for none).
	SolverVersion string `yaml:"solver_version"`
	// Resource limit per query, in approximate seconds.
	Rlimit uint64 `yaml:"rlimit"`
	// Additional solver options, issued after the recommended options.
	SmtOptions map[string]string `yaml:"smt_options"`
	// Number of buckets checked concurrently.
	NumThreads uint `yaml:"num_threads"`
	// Maximum number of errors reported per query.
	MultipleErrors uint `yaml:"multiple_errors"`
	// Rerun failing functions with their assertions expanded.
	ExpandErrors bool `yaml:"expand_errors"`
	// Do not rerun failing functions to check their recommends.
	NoAutoRecommends bool `yaml:"no_auto_recommends_check"`
	// Profiling mode (off, canceled or all).
	Profile string `yaml:"profile"`
	// Directory in which logs and traces are written.
	LogDir string `yaml:"log_dir"`
	// Which logs to write.
	LogAll     bool `yaml:"log_all"`
	LogInitial bool `yaml:"log_initial"`
	LogFinal   bool `yaml:"log_final"`
	LogSmt     bool `yaml:"log_smt"`
	// Report the start and end of each bucket.
	Trace bool `yaml:"trace"`
	// File to which metrics are written in the text exposition format.
	MetricsFile string `yaml:"metrics_file"`
	// Restrict checking to these modules.
	Modules []string `yaml:"verify_module"`
	// Restrict checking to these functions.
	Functions []string `yaml:"verify_function"`
}

// DefaultConfig returns the configuration used when nothing else is given.
func DefaultConfig() Config {
	return Config{
		Solver:         "z3",
		Rlimit:         10,
		NumThreads:     1,
		MultipleErrors: 2,
		Profile:        profile.Off.String(),
		LogDir:         ".smtcheck-log",
	}
}

// LoadConfig reads a configuration file on top of the defaults.  An empty path
// gives the defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	//
	if path == "" {
		return config, nil
	}
	//
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config, fmt.Errorf("config file %s does not exist", path)
	} else if err != nil {
		return config, err
	} else if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parse config %s: %w", path, err)
	}
	//
	return config, config.Validate()
}

// Validate checks this configuration is sensible.
func (c *Config) Validate() error {
	if _, err := profile.ParseMode(c.Profile); err != nil {
		return err
	} else if c.NumThreads == 0 {
		return errors.New("number of threads must be at least one")
	} else if c.Solver == "" {
		return errors.New("no solver given")
	}
	//
	return nil
}

// ProfileMode returns the configured profiling mode.
func (c *Config) ProfileMode() profile.Mode {
	mode, err := profile.ParseMode(c.Profile)
	if err != nil {
		panic(err.Error())
	}
	//
	return mode
}

// Filter returns the filter restricting which functions are checked.
func (c *Config) Filter() *plan.UserFilter {
	return &plan.UserFilter{Modules: c.Modules, Functions: c.Functions}
}

// CheckConfig returns the configuration of the validity checker.
func (c *Config) CheckConfig() check.Config {
	return check.Config{
		MultipleErrors: c.MultipleErrors,
		ExpandErrors:   c.ExpandErrors,
		Profiling:      c.ProfileMode() != profile.Off,
	}
}

// Options returns the additional solver options, in name order.
func (c *Config) Options() []*vc.SetOption {
	var (
		options []*vc.SetOption
		names   []string
	)
	//
	for name := range c.SmtOptions {
		names = append(names, name)
	}
	//
	sort.Strings(names)
	//
	for _, name := range names {
		options = append(options, &vc.SetOption{Name: name, Value: c.SmtOptions[name]})
	}
	//
	return options
}

// logging determines whether any log files are written.
func (c *Config) logging() bool {
	return c.LogAll || c.LogInitial || c.LogFinal || c.LogSmt
}
