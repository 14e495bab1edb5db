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
	"encoding/binary"
	"io"
	"time"

	"zombiezen.com/go/kdbview/internal/kdbtest"
	"zombiezen.com/go/kdbview/pkg/kdbcrypt"
)

// A fixture describes a KDB file to synthesize for a test.
type fixture struct {
	password string
	keyFile  []byte
	cipher   kdbcrypt.Cipher
	rounds   uint32

	// Header overrides.  Zero means the value derived from the rest of the fixture.
	flags   Flags
	version uint32

	groups  []fixtureGroup
	entries []*Entry

	// body replaces the encoded groups and entries if not nil.
	body []byte
}

type fixtureGroup struct {
	*Group
	level uint16
}

var (
	fixtureMasterSeed    = kdbtest.MasterSeed
	fixtureTransformSeed = kdbtest.TransformSeed
	fixtureIV            = kdbtest.IV
)

func (f *fixture) file() *kdbtest.File {
	kf := &kdbtest.File{
		Password: f.password,
		KeyFile:  f.keyFile,
		Cipher:   f.cipher,
		Rounds:   f.rounds,
		Flags:    uint32(f.flags),
		Version:  f.version,
		Body:     f.body,
	}
	for _, g := range f.groups {
		kf.Groups = append(kf.Groups, testGroup(g.Group, g.level))
	}
	for _, e := range f.entries {
		kf.Entries = append(kf.Entries, testEntry(e))
	}
	return kf
}

func (f *fixture) plaintext() []byte {
	return f.file().Plaintext()
}

// build returns the encrypted file.
func (f *fixture) build() []byte {
	return f.file().MustBytes()
}

func testGroup(g *Group, level uint16) kdbtest.Group {
	return kdbtest.Group{
		ID:       g.ID,
		Title:    g.Title,
		Image:    g.Image,
		Level:    level,
		Flags:    g.Flags,
		Created:  g.CreationTime,
		Modified: g.LastModificationTime,
		Accessed: g.LastAccessTime,
		Expires:  g.ExpiryTime,
	}
}

func testEntry(e *Entry) kdbtest.Entry {
	return kdbtest.Entry{
		UUID:       e.UUID,
		GroupID:    e.GroupID,
		Image:      e.Image,
		Title:      e.Title,
		URL:        e.URL,
		Username:   e.Username,
		Password:   e.Password,
		Comment:    e.Comment,
		Created:    e.CreationTime,
		Modified:   e.LastModificationTime,
		Accessed:   e.LastAccessTime,
		Expires:    e.ExpiryTime,
		BinaryDesc: e.BinaryDesc,
		Binary:     e.Binary,
	}
}

// writeHeader writes h in file order.  Every field of Header is fixed-size.
func writeHeader(w io.Writer, h *Header) error {
	return binary.Write(w, binary.LittleEndian, h)
}

func writeGroup(w io.Writer, g *Group, level uint16) error {
	tg := testGroup(g, level)
	_, err := w.Write(kdbtest.AppendGroup(nil, &tg))
	return err
}

func writeEntry(w io.Writer, e *Entry) error {
	te := testEntry(e)
	_, err := w.Write(kdbtest.AppendEntry(nil, &te))
	return err
}

// A writer collects the first write error.
type writer struct {
	w   io.Writer
	err error
}

func writeField(w *writer, key uint16, val []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(kdbtest.AppendField(nil, key, val))
}

func packDate(t time.Time) [5]byte {
	return kdbtest.PackDate(t)
}
