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
	"bytes"
	"time"

	"golang.org/x/text/encoding/charmap"
)

// A cursor reads little-endian values from an immutable buffer.
type cursor struct {
	b   []byte
	off int
}

func newCursor(b []byte) *cursor {
	return &cursor{b: b}
}

func (c *cursor) remaining() int {
	return len(c.b) - c.off
}

func (c *cursor) hasNextByte() bool {
	return c.remaining() >= 1
}

func (c *cursor) hasNextInt() bool {
	return c.remaining() >= 4
}

func (c *cursor) readByte() (byte, error) {
	if !c.hasNextByte() {
		return 0, &outOfDataError{off: c.off, want: 1}
	}
	b := c.b[c.off]
	c.off++
	return b, nil
}

// readBytes returns the next n bytes.  The returned slice aliases the
// cursor's buffer.
func (c *cursor) readBytes(n int) ([]byte, error) {
	if n < 0 || n > c.remaining() {
		return nil, &outOfDataError{off: c.off, want: n, have: c.remaining()}
	}
	b := c.b[c.off : c.off+n : c.off+n]
	c.off += n
	return b, nil
}

func (c *cursor) readU16LE() (uint16, error) {
	b, err := c.readBytes(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

func (c *cursor) readU32LE() (uint32, error) {
	b, err := c.readBytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// readCString reads up to and including the next zero byte and decodes
// the bytes before it as Latin-1.
func (c *cursor) readCString() (string, error) {
	i := bytes.IndexByte(c.b[c.off:], 0)
	if i == -1 {
		return "", &outOfDataError{off: len(c.b), want: 1}
	}
	b, _ := c.readBytes(i)
	c.readByte()
	return latin1(b), nil
}

// readPackedDate decodes the 5-byte KeePass date.  It does not interpret
// the "never" date; see fieldDate.
func (c *cursor) readPackedDate() (time.Time, error) {
	b, err := c.readBytes(5)
	if err != nil {
		return time.Time{}, err
	}

	// 0        1        2        3        4
	// YYYYYYYY YYYYYYMM MMDDDDDH HHHHmmmm mmssssss
	year := int(b[0])<<6 | int(b[1]>>2)
	month := time.Month(b[1]&0x03<<2 | b[2]>>6)
	day := int(b[2] >> 1 & 0x1f)
	hour := int(b[2]&0x01<<4 | b[3]>>4)
	minute := int(b[3]&0x0f<<2 | b[4]>>6)
	second := int(b[4] & 0x3f)
	return time.Date(year, month, day, hour, minute, second, 0, time.UTC), nil
}

// readRemaining returns all unread bytes and moves to the end.
func (c *cursor) readRemaining() []byte {
	b := c.b[c.off:]
	c.off = len(c.b)
	return b
}

// latin1 decodes ISO 8859-1 bytes into a UTF-8 string.
func latin1(b []byte) string {
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		// Every byte maps to a rune in ISO 8859-1.
		return string(b)
	}
	return string(s)
}

// neverDate is the date KeePass stores for "no expiry".
var neverDate = time.Date(2999, time.December, 28, 23, 59, 59, 0, time.UTC)
