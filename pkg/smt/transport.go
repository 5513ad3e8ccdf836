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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/consensys/go-smtcheck/pkg/vc"
	log "github.com/sirupsen/logrus"
)

// Transport carries SMT-LIB text to and from a solver.  Commands are written
// one at a time, whilst Sync waits until every response to the commands
// written so far has arrived and returns them.
type Transport interface {
	// Write a single command.
	Write(command string) error
	// Sync returns all responses produced since the last sync.
	Sync(ctx context.Context) ([]string, error)
	// Close the transport, terminating the solver.
	Close() error
}

// Factory starts transports for a given decision procedure.
type Factory interface {
	Start(ctx context.Context, prover vc.Prover) (Transport, error)
}

// ProcessFactory starts solver processes communicating over pipes.
type ProcessFactory struct {
	// Path of the solver executable.
	Path string
	// Arguments, which must put the solver into interactive SMT-LIB mode.
	Args []string
}

// NewProcessFactory locates a solver binary, or returns an error if it cannot
// be found.
func NewProcessFactory(binary string) (*ProcessFactory, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("solver %q not found in PATH: %w", binary, err)
	}
	//
	return &ProcessFactory{path, []string{"-smt2", "-in"}}, nil
}

// Start implementation for the Factory interface.  All decision procedures
// are currently provided by the same solver binary, configured by options
// sent over the session.
func (p *ProcessFactory) Start(ctx context.Context, prover vc.Prover) (Transport, error) {
	log.Debugf("starting %s (%s prover)", p.Path, prover)
	//
	return StartProcess(p.Path, p.Args...)
}

// Process is a transport to a solver running as a child process.  Responses
// are delimited by echoing a unique marker after the commands of interest.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	writer *bufio.Writer
	lines  chan string
	stderr bytes.Buffer
	nonce  uint
	// Set by the reader once the process has exited, before lines is closed.
	exit    error
	message string
}

// StartProcess launches a solver process.
func StartProcess(path string, args ...string) (*Process, error) {
	p := &Process{cmd: exec.Command(path, args...), lines: make(chan string, 64)}
	p.cmd.Stderr = &p.stderr
	//
	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	//
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	//
	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", path, err)
	}
	//
	p.stdin = stdin
	p.writer = bufio.NewWriter(stdin)
	// Responses are read on a separate goroutine, so that a sync can be
	// abandoned when its context is done.
	go func() {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
		//
		for scanner.Scan() {
			p.lines <- scanner.Text()
		}
		// Wait also completes the copying of stderr.
		p.exit = p.cmd.Wait()
		p.message = strings.TrimSpace(p.stderr.String())
		close(p.lines)
	}()
	//
	return p, nil
}

// Write implementation for the Transport interface.
func (p *Process) Write(command string) error {
	if _, err := p.writer.WriteString(command); err != nil {
		return err
	}
	//
	return p.writer.WriteByte('\n')
}

// Sync implementation for the Transport interface.
func (p *Process) Sync(ctx context.Context) ([]string, error) {
	var responses []string
	//
	p.nonce++
	marker := fmt.Sprintf("sync!%d", p.nonce)
	//
	if err := p.Write(fmt.Sprintf("(echo \"%s\")", marker)); err != nil {
		return nil, err
	} else if err := p.writer.Flush(); err != nil {
		return nil, err
	}
	//
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case line, ok := <-p.lines:
			if !ok {
				return nil, fmt.Errorf("solver exited unexpectedly: %s", p.message)
			} else if line == marker {
				return responses, nil
			}
			//
			responses = append(responses, line)
		}
	}
}

// Close implementation for the Transport interface.
func (p *Process) Close() error {
	_ = p.Write("(exit)")
	_ = p.writer.Flush()
	_ = p.stdin.Close()
	// Drain any remaining output so the reader terminates
	for range p.lines {
	}
	//
	return p.exit
}
