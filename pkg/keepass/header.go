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

package keepass

import (
	"fmt"
	"io"
	"strings"

	"zombiezen.com/go/kdbview/pkg/kdbcrypt"
)

// File header magic numbers
const (
	signature1 = 0x9aa2d903
	signature2 = 0xb54bfb65

	fileVersion             = 0x00030004
	fileVersionCriticalMask = 0xffffff00
)

// HeaderSize is the number of bytes that the file header occupies.
const HeaderSize = 124

// Flags is the header's encryption flag set.
type Flags uint32

// Encryption flags
const (
	SHA2Flag     Flags = 1 << 0
	RijndaelFlag Flags = 1 << 1
	ArcFourFlag  Flags = 1 << 2
	TwofishFlag  Flags = 1 << 3
)

var flagNames = []struct {
	f    Flags
	name string
}{
	{SHA2Flag, "SHA2"},
	{RijndaelFlag, "Rijndael"},
	{ArcFourFlag, "ArcFour"},
	{TwofishFlag, "Twofish"},
}

// Has reports whether all the bits in f2 are set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

func (f Flags) String() string {
	var parts []string
	for _, n := range flagNames {
		if f.Has(n.f) {
			parts = append(parts, n.name)
			f &^= n.f
		}
	}
	if f != 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%#x", uint32(f)))
	}
	return strings.Join(parts, "|")
}

// Header is the fixed-size, unencrypted start of a KDB file.
type Header struct {
	Signature1      uint32
	Signature2      uint32
	Flags           Flags
	Version         uint32
	MasterSeed      [16]byte
	IV              [16]byte
	NumGroups       uint32
	NumEntries      uint32
	ContentHash     [32]byte
	TransformSeed   [32]byte
	TransformRounds uint32
}

// Verify reports whether the header's signatures match and its version
// is compatible.  Only the top three bytes of the version are compared.
func (h *Header) Verify() bool {
	return h.Signature1 == signature1 &&
		h.Signature2 == signature2 &&
		h.Version&fileVersionCriticalMask == fileVersion&fileVersionCriticalMask
}

// Cipher returns the body cipher named by the flags.  Rijndael wins if
// both cipher flags are set.
func (h *Header) Cipher() (kdbcrypt.Cipher, error) {
	switch {
	case h.Flags.Has(RijndaelFlag):
		return kdbcrypt.RijndaelCipher, nil
	case h.Flags.Has(TwofishFlag):
		return kdbcrypt.TwofishCipher, nil
	default:
		return 0, &cipherError{flags: h.Flags}
	}
}

func (h *Header) cryptParams(password, keyFileHash []byte) (*kdbcrypt.Params, error) {
	c, err := h.Cipher()
	if err != nil {
		return nil, err
	}
	return &kdbcrypt.Params{
		Key: kdbcrypt.Key{
			Password:        password,
			KeyFileHash:     keyFileHash,
			MasterSeed:      h.MasterSeed,
			TransformSeed:   h.TransformSeed,
			TransformRounds: h.TransformRounds,
		},
		Cipher: c,
		IV:     h.IV,
	}, nil
}

// parseHeader reads the header fields in file order.  It does not verify them.
func parseHeader(c *cursor) (*Header, error) {
	if c.remaining() < HeaderSize {
		return nil, &outOfDataError{off: c.off, want: HeaderSize, have: c.remaining()}
	}
	h := new(Header)
	h.Signature1, _ = c.readU32LE()
	h.Signature2, _ = c.readU32LE()
	flags, _ := c.readU32LE()
	h.Flags = Flags(flags)
	h.Version, _ = c.readU32LE()
	b, _ := c.readBytes(16)
	copy(h.MasterSeed[:], b)
	b, _ = c.readBytes(16)
	copy(h.IV[:], b)
	h.NumGroups, _ = c.readU32LE()
	h.NumEntries, _ = c.readU32LE()
	b, _ = c.readBytes(32)
	copy(h.ContentHash[:], b)
	b, _ = c.readBytes(32)
	copy(h.TransformSeed[:], b)
	h.TransformRounds, _ = c.readU32LE()
	return h, nil
}

// ReadHeader reads and verifies a file header from r without decrypting
// anything.
func ReadHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, &outOfDataError{want: HeaderSize, have: n}
	}
	if err != nil {
		return nil, err
	}
	return readHeader(newCursor(buf))
}

func readHeader(c *cursor) (*Header, error) {
	h, err := parseHeader(c)
	if err != nil {
		return nil, err
	}
	if !h.Verify() {
		return nil, &versionError{h.Signature1, h.Signature2, h.Version}
	}
	return h, nil
}
