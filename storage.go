// Copyright 2016 Ross Light
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

import (
	"io"
	"os"
)

// storage gives read access to a single database file.  The file may be
// replaced between reads; each read sees whatever is on disk at the time.
type storage struct {
	path string
}

func newStorage(path string) *storage {
	return &storage{path: path}
}

// exists reports whether the file is present and is a regular file.
func (st *storage) exists() bool {
	info, err := os.Stat(st.path)
	return err == nil && info.Mode().IsRegular()
}

// open returns a reader for the file's current contents.
func (st *storage) open() (io.ReadCloser, error) {
	return os.Open(st.path)
}
