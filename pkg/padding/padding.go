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

// Package padding provides block cipher padding schemes.
package padding // import "zombiezen.com/go/kdbview/pkg/padding"

import "errors"

// Padding is a padding algorithm.
type Padding interface {
	// Pad appends padding to b so that its length is a multiple of blockSize.
	Pad(b []byte, blockSize int) []byte

	// Strip returns b without its padding.  The result is always a
	// subslice of b.  On error, b is returned unchanged.
	Strip(b []byte, blockSize int) ([]byte, error)
}

// Errors
var (
	ErrWrongPadding = errors.New("padding: malformed padding")
	ErrBadBlockSize = errors.New("padding: block size out of range")
	ErrDataSize     = errors.New("padding: input is not a multiple of block size")
)

// PKCS7 is the scheme from RFC 5652 section 6.3: n bytes of value n.
// Block sizes must be in the range [2, 255].
var PKCS7 Padding = pkcs7{}

type pkcs7 struct{}

func (pkcs7) String() string   { return "PKCS7" }
func (pkcs7) GoString() string { return "padding.PKCS7" }

func (pkcs7) Pad(b []byte, blockSize int) []byte {
	if !validPKCS7BlockSize(blockSize) {
		panic("padding: illegal PKCS7 block size")
	}
	n := blockSize - len(b)%blockSize
	for i := 0; i < n; i++ {
		b = append(b, byte(n))
	}
	return b
}

func (pkcs7) Strip(b []byte, blockSize int) ([]byte, error) {
	if !validPKCS7BlockSize(blockSize) {
		return b, ErrBadBlockSize
	}
	if len(b) == 0 || len(b)%blockSize != 0 {
		return b, ErrDataSize
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize {
		return b, ErrWrongPadding
	}
	tail := b[len(b)-n:]
	for _, x := range tail {
		if int(x) != n {
			return b, ErrWrongPadding
		}
	}
	return b[:len(b)-n], nil
}

func validPKCS7BlockSize(n int) bool {
	return n > 1 && n < 256
}
