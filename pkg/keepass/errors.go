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
	"errors"
	"fmt"
	"strings"
)

// Errors returned by Open.  Use errors.Is to test for them, since they
// are usually wrapped with more detail.
var (
	// ErrOutOfData means the file or its decrypted contents ended early.
	ErrOutOfData = errors.New("keepass: unexpected end of data")
	// ErrUnsupportedVersion means the signatures or version did not match KeePass 1.
	ErrUnsupportedVersion = errors.New("keepass: not a supported KeePass 1 file")
	// ErrUnsupportedCipher means neither the Rijndael nor the Twofish flag was set.
	ErrUnsupportedCipher = errors.New("keepass: unsupported encryption algorithm")
	// ErrInvalidPassword means the decrypted contents did not match the stored hash.
	ErrInvalidPassword = errors.New("keepass: password does not match or database is corrupt")
	// ErrMalformedRecord means a group or entry record was inconsistent.
	ErrMalformedRecord = errors.New("keepass: malformed record")
)

// IsRetryable reports whether err may go away by trying again with a
// different password or key file.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrInvalidPassword)
}

type outOfDataError struct {
	off  int
	want int
	have int
}

func (e *outOfDataError) Error() string {
	return fmt.Sprintf("keepass: unexpected end of data at offset %d (need %d bytes, have %d)", e.off, e.want, e.have)
}

func (e *outOfDataError) Unwrap() error { return ErrOutOfData }

type versionError struct {
	signature1 uint32
	signature2 uint32
	version    uint32
}

func (e *versionError) Error() string {
	if e.signature1 != signature1 || e.signature2 != signature2 {
		return fmt.Sprintf("keepass: not a KeePass 1 file (signature %08x %08x)", e.signature1, e.signature2)
	}
	return fmt.Sprintf("keepass: unsupported version %#08x", e.version)
}

func (e *versionError) Unwrap() error { return ErrUnsupportedVersion }

type cipherError struct {
	flags Flags
}

func (e *cipherError) Error() string {
	return fmt.Sprintf("keepass: unsupported encryption algorithm (flags %v)", e.flags)
}

func (e *cipherError) Unwrap() error { return ErrUnsupportedCipher }

type fieldSizeError struct {
	name string
	size int
	want int
}

func (e *fieldSizeError) Error() string {
	return fmt.Sprintf("keepass: %s field size is %d, should be %d", e.name, e.size, e.want)
}

func (e *fieldSizeError) Unwrap() error { return ErrMalformedRecord }

// recordError adds the position of a group or entry record to err.
type recordError struct {
	kind  string
	index int
	err   error
}

func (e *recordError) Error() string {
	return fmt.Sprintf("keepass: %s %d: %s", e.kind, e.index, strings.TrimPrefix(e.err.Error(), "keepass: "))
}

func (e *recordError) Unwrap() error { return e.err }
