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

// Package kdbtest builds KeePass1 database files for tests.
package kdbtest // import "zombiezen.com/go/kdbview/internal/kdbtest"

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"golang.org/x/text/encoding/charmap"
	"zombiezen.com/go/kdbview/pkg/kdbcrypt"
)

// Header constants.
const (
	Signature1 = 0x9aa2d903
	Signature2 = 0xb54bfb65
	Version    = 0x00030004

	SHA2Flag     = 1
	RijndaelFlag = 2
	ArcFourFlag  = 4
	TwofishFlag  = 8
)

// Default seeds, used when a File leaves them zero.
var (
	MasterSeed = [16]byte{
		0xd4, 0x80, 0x93, 0xfd, 0x7a, 0xf7, 0x8c, 0x88,
		0xef, 0x20, 0x14, 0xc6, 0x7e, 0x67, 0xd1, 0xcb,
	}
	TransformSeed = [32]byte{
		0x13, 0x85, 0x9e, 0xdf, 0x26, 0x92, 0x5b, 0x40,
		0x26, 0xde, 0x42, 0xf2, 0x16, 0xee, 0xa5, 0x25,
		0xe5, 0xe4, 0xae, 0x4b, 0x8f, 0xf3, 0xe0, 0x51,
		0x3c, 0x3d, 0x74, 0xa6, 0x19, 0x0f, 0xec, 0xea,
	}
	IV = [16]byte{
		0x59, 0xb9, 0xa0, 0x2a, 0xbf, 0x60, 0x9c, 0x25,
		0x4a, 0xa7, 0xfb, 0x76, 0x71, 0x58, 0xba, 0x49,
	}
)

// A Group is a group record.  Zero times are written as "never".
type Group struct {
	ID       uint32
	Title    string
	Image    uint32
	Level    uint16
	Flags    uint32
	Created  time.Time
	Modified time.Time
	Accessed time.Time
	Expires  time.Time
}

// An Entry is an entry record.  Zero times are written as "never".
// The binary fields are only written if Binary is not nil.
type Entry struct {
	UUID       [16]byte
	GroupID    uint32
	Image      uint32
	Title      string
	URL        string
	Username   string
	Password   string
	Comment    string
	Created    time.Time
	Modified   time.Time
	Accessed   time.Time
	Expires    time.Time
	BinaryDesc string
	Binary     []byte
}

// A File describes a whole database.
type File struct {
	Password string
	KeyFile  []byte // raw key file contents
	Cipher   kdbcrypt.Cipher
	Rounds   uint32

	// Zero values are replaced by the package defaults.  Flags defaults
	// to SHA2 plus the flag for Cipher.
	Flags         uint32
	Version       uint32
	MasterSeed    [16]byte
	TransformSeed [32]byte
	IV            [16]byte

	Groups  []Group
	Entries []Entry

	// Body replaces the encoded groups and entries if not nil.
	Body []byte
}

// Plaintext returns the unencrypted body.
func (f *File) Plaintext() []byte {
	if f.Body != nil {
		return f.Body
	}
	var b []byte
	for i := range f.Groups {
		b = AppendGroup(b, &f.Groups[i])
	}
	for i := range f.Entries {
		b = AppendEntry(b, &f.Entries[i])
	}
	return b
}

func (f *File) params() (flags, version uint32, ms [16]byte, ts [32]byte, iv [16]byte) {
	flags, version, ms, ts, iv = f.Flags, f.Version, f.MasterSeed, f.TransformSeed, f.IV
	if flags == 0 {
		flags = SHA2Flag | RijndaelFlag
		if f.Cipher == kdbcrypt.TwofishCipher {
			flags = SHA2Flag | TwofishFlag
		}
	}
	if version == 0 {
		version = Version
	}
	if ms == ([16]byte{}) {
		ms = MasterSeed
	}
	if ts == ([32]byte{}) {
		ts = TransformSeed
	}
	if iv == ([16]byte{}) {
		iv = IV
	}
	return
}

// Header returns the 124-byte header for a file with the given plaintext body.
func (f *File) Header(plain []byte) []byte {
	flags, version, ms, ts, iv := f.params()
	sum := sha256.Sum256(plain)
	b := make([]byte, 0, 124)
	b = binary.LittleEndian.AppendUint32(b, Signature1)
	b = binary.LittleEndian.AppendUint32(b, Signature2)
	b = binary.LittleEndian.AppendUint32(b, flags)
	b = binary.LittleEndian.AppendUint32(b, version)
	b = append(b, ms[:]...)
	b = append(b, iv[:]...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(f.Groups)))
	b = binary.LittleEndian.AppendUint32(b, uint32(len(f.Entries)))
	b = append(b, sum[:]...)
	b = append(b, ts[:]...)
	b = binary.LittleEndian.AppendUint32(b, f.Rounds)
	return b
}

// Bytes returns the encrypted file.
func (f *File) Bytes() ([]byte, error) {
	_, _, ms, ts, iv := f.params()
	var kh []byte
	if f.KeyFile != nil {
		var err error
		kh, err = kdbcrypt.ReadKeyFile(bytes.NewReader(f.KeyFile))
		if err != nil {
			return nil, err
		}
	}
	plain := f.Plaintext()
	out := bytes.NewBuffer(f.Header(plain))
	enc, err := kdbcrypt.NewEncrypter(out, &kdbcrypt.Params{
		Key: kdbcrypt.Key{
			Password:        []byte(f.Password),
			KeyFileHash:     kh,
			MasterSeed:      ms,
			TransformSeed:   ts,
			TransformRounds: f.Rounds,
		},
		Cipher: f.Cipher,
		IV:     iv,
	})
	if err != nil {
		return nil, err
	}
	if _, err := enc.Write(plain); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// MustBytes is like Bytes but panics on error.
func (f *File) MustBytes() []byte {
	b, err := f.Bytes()
	if err != nil {
		panic(err)
	}
	return b
}

// Field types, shared by groups and entries where they overlap.
const (
	groupID       = 0x0001
	groupTitle    = 0x0002
	groupCreated  = 0x0003
	groupModified = 0x0004
	groupAccessed = 0x0005
	groupExpires  = 0x0006
	groupImage    = 0x0007
	groupLevel    = 0x0008
	groupFlags    = 0x0009

	entryUUID       = 0x0001
	entryGroupID    = 0x0002
	entryImage      = 0x0003
	entryTitle      = 0x0004
	entryURL        = 0x0005
	entryUsername   = 0x0006
	entryPassword   = 0x0007
	entryComment    = 0x0008
	entryCreated    = 0x0009
	entryModified   = 0x000a
	entryAccessed   = 0x000b
	entryExpires    = 0x000c
	entryBinaryDesc = 0x000d
	entryBinary     = 0x000e

	// Terminator ends every record.
	Terminator = 0xffff
)

// AppendGroup appends g's record, terminator included.
func AppendGroup(b []byte, g *Group) []byte {
	b = AppendUint32Field(b, groupID, g.ID)
	b = AppendStringField(b, groupTitle, g.Title)
	b = AppendDateField(b, groupCreated, g.Created)
	b = AppendDateField(b, groupModified, g.Modified)
	b = AppendDateField(b, groupAccessed, g.Accessed)
	b = AppendDateField(b, groupExpires, g.Expires)
	b = AppendUint32Field(b, groupImage, g.Image)
	b = AppendUint16Field(b, groupLevel, g.Level)
	b = AppendUint32Field(b, groupFlags, g.Flags)
	return AppendField(b, Terminator, nil)
}

// AppendEntry appends e's record, terminator included.
func AppendEntry(b []byte, e *Entry) []byte {
	b = AppendField(b, entryUUID, e.UUID[:])
	b = AppendUint32Field(b, entryGroupID, e.GroupID)
	b = AppendUint32Field(b, entryImage, e.Image)
	b = AppendStringField(b, entryTitle, e.Title)
	b = AppendStringField(b, entryURL, e.URL)
	b = AppendStringField(b, entryUsername, e.Username)
	b = AppendStringField(b, entryPassword, e.Password)
	b = AppendStringField(b, entryComment, e.Comment)
	b = AppendDateField(b, entryCreated, e.Created)
	b = AppendDateField(b, entryModified, e.Modified)
	b = AppendDateField(b, entryAccessed, e.Accessed)
	b = AppendDateField(b, entryExpires, e.Expires)
	if e.Binary != nil {
		b = AppendStringField(b, entryBinaryDesc, e.BinaryDesc)
		b = AppendField(b, entryBinary, e.Binary)
	}
	return AppendField(b, Terminator, nil)
}

// AppendField appends a type-length-value field.
func AppendField(b []byte, typ uint16, val []byte) []byte {
	b = binary.LittleEndian.AppendUint16(b, typ)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(val)))
	return append(b, val...)
}

func AppendUint16Field(b []byte, typ uint16, v uint16) []byte {
	return AppendField(b, typ, binary.LittleEndian.AppendUint16(nil, v))
}

func AppendUint32Field(b []byte, typ uint16, v uint32) []byte {
	return AppendField(b, typ, binary.LittleEndian.AppendUint32(nil, v))
}

// AppendStringField appends s encoded as zero-terminated Latin-1.
// It panics if s has characters outside Latin-1.
func AppendStringField(b []byte, typ uint16, s string) []byte {
	enc, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		panic(err)
	}
	return AppendField(b, typ, append([]byte(enc), 0))
}

func AppendDateField(b []byte, typ uint16, t time.Time) []byte {
	d := PackDate(t)
	return AppendField(b, typ, d[:])
}

// Never is the date KeePass writes for "no date".
var Never = time.Date(2999, time.December, 28, 23, 59, 59, 0, time.UTC)

// PackDate encodes t in the 5-byte date format, in UTC.  The zero time
// is written as Never.
func PackDate(t time.Time) [5]byte {
	if t.IsZero() {
		t = Never
	}
	t = t.In(time.UTC)
	year, month, day := t.Date()
	hour, minute, second := t.Clock()

	var b [5]byte
	b[0] = byte(year >> 6)
	b[1] = byte(year&0x3f)<<2 | byte(month)>>2
	b[2] = byte(month&0x03)<<6 | byte(day<<1) | byte(hour>>4)
	b[3] = byte(hour&0x0f<<4) | byte(minute>>2)
	b[4] = byte(minute&0x03<<6) | byte(second)
	return b
}
