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

package keepass

import (
	"io"

	"zombiezen.com/go/kdbview/pkg/kdbcrypt"
)

// Options is the set of parameters for opening a database.
// Nil is treated the same as the zero value.
type Options struct {
	// Password is an optional textual password to decrypt the database.
	// It is hashed as UTF-8.
	Password string

	// KeyFile is an optional binary file to decrypt the database.
	KeyFile io.Reader

	// Progress, if not nil, is called during key derivation.
	// See kdbcrypt.ProgressFunc for the cadence.
	Progress kdbcrypt.ProgressFunc
}

func (opts *Options) getPassword() string {
	if opts == nil {
		return ""
	}
	return opts.Password
}

func (opts *Options) getKeyFileHash() ([]byte, error) {
	if opts == nil || opts.KeyFile == nil {
		return nil, nil
	}
	return kdbcrypt.ReadKeyFile(opts.KeyFile)
}

func (opts *Options) getProgress() kdbcrypt.ProgressFunc {
	if opts == nil {
		return nil
	}
	return opts.Progress
}

// Ciphers, for reading Header.Cipher results without importing kdbcrypt.
const (
	RijndaelCipher = kdbcrypt.RijndaelCipher
	TwofishCipher  = kdbcrypt.TwofishCipher
)
