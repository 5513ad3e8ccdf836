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
package util

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// IOError is a failure to access a file, identifying the offending path.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// PrepareDir ensures a directory exists and contains no files.  Nested
// directories are left alone.
func PrepareDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOError{dir, err}
	}
	//
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &IOError{dir, err}
	}
	//
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		//
		path := filepath.Join(dir, e.Name())
		//
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &IOError{path, err}
		}
	}
	//
	return nil
}

// CreateFile creates (or truncates) a file within a directory.
func CreateFile(dir string, name string) (*os.File, error) {
	path := filepath.Join(dir, name)
	//
	file, err := os.Create(path)
	if err != nil {
		return nil, &IOError{path, err}
	}
	//
	return file, nil
}
