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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/consensys/go-smtcheck/pkg/plan"
	"github.com/consensys/go-smtcheck/pkg/smt"
	"github.com/consensys/go-smtcheck/pkg/util"
)

// LogDir is the directory into which logs and traces are written.  The
// directory is created, and any files within it removed, on first use.  A log
// directory may be shared between workers.
type LogDir struct {
	path string
	once sync.Once
	err  error
}

// NewLogDir constructs a (not yet prepared) log directory.
func NewLogDir(path string) *LogDir {
	return &LogDir{path: path}
}

// Path returns the path of a file within this directory, preparing the
// directory if necessary.
func (p *LogDir) Path(name string) (string, error) {
	p.once.Do(func() {
		p.err = util.PrepareDir(p.path)
	})
	//
	if p.err != nil {
		return "", p.err
	}
	//
	return filepath.Join(p.path, name), nil
}

// Create a file within this directory.
func (p *LogDir) Create(name string) (*os.File, error) {
	if _, err := p.Path(name); err != nil {
		return nil, err
	}
	//
	return util.CreateFile(p.path, name)
}

// LogName determines the base name of the files written for a session.
// Sessions spun off for a single query are numbered from one, whilst zero
// identifies the bucket's own session.
func LogName(bucket plan.BucketId, rerun bool, counter uint, expand bool) string {
	name := bucket.FileName()
	//
	if rerun {
		name += "_rerun"
	}
	//
	if counter > 0 {
		name += fmt.Sprintf("_%02d", counter)
	}
	//
	if expand {
		name += "_expand"
	}
	//
	return name
}

// sessionLogs are the files mirroring a single session.
type sessionLogs struct {
	smt.Logs
	files []*os.File
}

// openLogs opens whichever logs are requested for a session.
func openLogs(config *Config, dir *LogDir, name string) (*sessionLogs, error) {
	var logs sessionLogs
	//
	open := func(enabled bool, suffix string) (io.Writer, error) {
		if !enabled && !config.LogAll {
			return nil, nil
		}
		//
		file, err := dir.Create(name + suffix)
		if err != nil {
			return nil, err
		}
		//
		logs.files = append(logs.files, file)
		//
		return file, nil
	}
	//
	var err error
	//
	if logs.Initial, err = open(config.LogInitial, InitialLogSuffix); err != nil {
		return nil, logs.close(err)
	} else if logs.Final, err = open(config.LogFinal, FinalLogSuffix); err != nil {
		return nil, logs.close(err)
	} else if logs.Smt, err = open(config.LogSmt, SmtLogSuffix); err != nil {
		return nil, logs.close(err)
	}
	//
	return &logs, nil
}

// close every file, returning the first error encountered (if any).
func (p *sessionLogs) close(err error) error {
	for _, f := range p.files {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &util.IOError{Path: f.Name(), Err: cerr}
		}
	}
	//
	p.files = nil
	//
	return err
}
