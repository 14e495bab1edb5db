// Copyright 2016 The Sandpass Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import "sync"

// progressTracker records how far the running key derivation has come.
// Only one unlock runs at a time.
type progressTracker struct {
	mu      sync.Mutex
	running bool
	done    uint32
	total   uint32
}

type progressState struct {
	Running bool    `json:"running"`
	Done    uint32  `json:"done"`
	Total   uint32  `json:"total"`
	Percent float64 `json:"percent"`
}

// start marks an unlock as running.  It returns false if one already is.
func (p *progressTracker) start() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return false
	}
	p.running = true
	p.done, p.total = 0, 0
	return true
}

// report is a kdbcrypt.ProgressFunc.
func (p *progressTracker) report(done, total uint32) {
	p.mu.Lock()
	p.done, p.total = done, total
	p.mu.Unlock()
}

func (p *progressTracker) finish() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

func (p *progressTracker) state() progressState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := progressState{
		Running: p.running,
		Done:    p.done,
		Total:   p.total,
	}
	if p.total > 0 {
		st.Percent = 100 * float64(p.done) / float64(p.total)
	}
	return st
}
