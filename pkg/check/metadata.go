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
package check

// Metadata provides read-only information about obligations which is
// supplied by whoever generated them, such as the source location of each
// quantifier.
type Metadata struct {
	spans map[string]string
}

// NewMetadata constructs metadata from a mapping of quantifier identifiers to
// their source spans.
func NewMetadata(spans map[string]string) *Metadata {
	copied := make(map[string]string, len(spans))
	//
	for k, v := range spans {
		copied[k] = v
	}
	//
	return &Metadata{copied}
}

// QidSpan returns the source span of a quantifier (if known).
func (p *Metadata) QidSpan(qid string) (string, bool) {
	if p == nil {
		return "", false
	}
	//
	span, ok := p.spans[qid]
	//
	return span, ok
}
