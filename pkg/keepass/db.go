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

// Package keepass reads the KeePass1 database format.
package keepass // import "zombiezen.com/go/kdbview/pkg/keepass"

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/kdbview/pkg/kdbcrypt"
	"zombiezen.com/go/kdbview/pkg/padding"
)

// Root group identity.
const (
	RootID    = 0
	RootTitle = "$ROOT$"
)

// A Database represents a decrypted KDB file.
type Database struct {
	header  Header
	root    *Group
	groups  []*Group
	entries []*Entry
}

// Header returns the file header the database was read from.
func (db *Database) Header() Header {
	return db.header
}

// Root returns the synthetic root group.
func (db *Database) Root() *Group {
	return db.root
}

// Groups returns every group except the root, in file order.
func (db *Database) Groups() []*Group {
	gg := make([]*Group, len(db.groups))
	copy(gg, db.groups)
	return gg
}

// Entries returns every entry, including meta streams, in file order.
func (db *Database) Entries() []*Entry {
	e := make([]*Entry, len(db.entries))
	copy(e, db.entries)
	return e
}

// Find returns the first entry that matches the UUID or nil if not found.
func (db *Database) Find(id uuid.UUID) *Entry {
	for _, e := range db.entries {
		if e.UUID == id {
			return e
		}
	}
	return nil
}

// FindGroup returns the first group in file order with the given ID or
// nil if not found.  Later groups that reuse the ID are only reachable
// through the tree.
func (db *Database) FindGroup(id uint32) *Group {
	if i := db.groupIndex(id); i >= 0 {
		return db.groups[i]
	}
	return nil
}

// Position sentinels for Group.parent and Entry.group.
const (
	atRoot   = -1
	noParent = -2
)

// A Group is a hierarchical collection of entries.
type Group struct {
	ID    uint32
	Title string
	Image uint32
	Flags uint32
	TimeInfo

	db *Database
	// parent is an index into db.groups, atRoot, or noParent for the root.
	parent  int
	index   int
	groups  []*Group
	entries []*Entry
}

// IsRoot reports whether g is the synthetic root group.
func (g *Group) IsRoot() bool {
	return g.parent == noParent
}

// Parent returns the group's parent or nil for the root.
func (g *Group) Parent() *Group {
	switch g.parent {
	case noParent:
		return nil
	case atRoot:
		return g.db.root
	default:
		return g.db.groups[g.parent]
	}
}

// Index returns the group's position among its parent's children.
func (g *Group) Index() int {
	return g.index
}

// Groups returns the groups as a slice.
func (g *Group) Groups() []*Group {
	gg := make([]*Group, len(g.groups))
	copy(gg, g.groups)
	return gg
}

// NGroups returns the number of subgroups this group has.
func (g *Group) NGroups() int {
	return len(g.groups)
}

// Group returns the group at index i.  If i is out of range,
// this method will panic.
func (g *Group) Group(i int) *Group {
	return g.groups[i]
}

// Entries returns the entries in the group as a slice.
func (g *Group) Entries() []*Entry {
	e := make([]*Entry, len(g.entries))
	copy(e, g.entries)
	return e
}

// NEntries returns the number of entries this group has.
func (g *Group) NEntries() int {
	return len(g.entries)
}

// Entry returns the entry at index i.  If i is out of range,
// this method will panic.
func (g *Group) Entry(i int) *Entry {
	return g.entries[i]
}

// FindEntry returns the first of g's direct entries with the UUID or nil
// if not found.  Unlike Database.Find, it resolves UUIDs that are reused
// across groups.
func (g *Group) FindEntry(id uuid.UUID) *Entry {
	for _, e := range g.entries {
		if e.UUID == id {
			return e
		}
	}
	return nil
}

func (g *Group) addGroup(sub *Group, parent int) {
	sub.parent = parent
	sub.index = len(g.groups)
	g.groups = append(g.groups, sub)
}

func (g *Group) addEntry(e *Entry, group int) {
	e.group = group
	e.index = len(g.entries)
	g.entries = append(g.entries, e)
}

// An Entry stores a username and password.
type Entry struct {
	UUID     uuid.UUID
	GroupID  uint32 // as stored in the file
	Image    uint32
	Title    string
	URL      string
	Username string
	Password string
	Comment  string
	TimeInfo

	// BinaryDesc names the attachment in Binary.  Binary is nil if the
	// record had no attachment field.
	BinaryDesc string
	Binary     []byte

	db    *Database
	group int
	index int
}

// Group returns the group that holds the entry.
func (e *Entry) Group() *Group {
	if e.group == atRoot {
		return e.db.root
	}
	return e.db.groups[e.group]
}

// Index returns the entry's position within its group.
func (e *Entry) Index() int {
	return e.index
}

// IsMetaStream reports whether the entry is KeePass's own metadata
// rather than a user entry.  Such entries are decoded like any other but
// should not be displayed.
func (e *Entry) IsMetaStream() bool {
	return e.Binary != nil &&
		e.Comment != "" &&
		e.BinaryDesc == "bin-stream" &&
		e.Title == "Meta-Info" &&
		e.Username == "SYSTEM" &&
		e.URL == "$" &&
		e.Image == 0
}

// TimeInfo holds all of the temporal data for a group or entry.
// A zero time means the field was absent or set to "never".
type TimeInfo struct {
	LastModificationTime time.Time
	CreationTime         time.Time
	LastAccessTime       time.Time
	ExpiryTime           time.Time
}

// Expires reports whether the item has an expiry.
func (ti *TimeInfo) Expires() bool {
	return !ti.ExpiryTime.IsZero()
}

// Open decrypts and reads a database.
func Open(r io.Reader, opts *Options) (*Database, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return open(data, opts)
}

// DecryptAndParse decrypts a KDB file with a password and returns its
// root group.  progress may be nil.
func DecryptAndParse(data []byte, password string, progress kdbcrypt.ProgressFunc) (*Group, error) {
	db, err := open(data, &Options{Password: password, Progress: progress})
	if err != nil {
		return nil, err
	}
	return db.Root(), nil
}

func open(data []byte, opts *Options) (*Database, error) {
	c := newCursor(data)
	h, err := readHeader(c)
	if err != nil {
		return nil, err
	}
	kh, err := opts.getKeyFileHash()
	if err != nil {
		return nil, err
	}
	cparams, err := h.cryptParams([]byte(opts.getPassword()), kh)
	if err != nil {
		return nil, err
	}
	crypt := c.readRemaining()
	if len(crypt) == 0 || len(crypt)%kdbcrypt.BlockSize != 0 {
		return nil, errDatabaseUnaligned
	}
	dec, err := kdbcrypt.NewDecrypter(bytes.NewReader(crypt), cparams, opts.getProgress())
	if err != nil {
		return nil, err
	}
	plain, err := decryptBody(dec, h.ContentHash[:])
	if err != nil {
		return nil, err
	}
	return parse(newCursor(plain), h)
}

var errDatabaseUnaligned = fmt.Errorf("%w: body is not a whole number of blocks", ErrOutOfData)

// decryptBody reads the plaintext from dec and checks it against contentHash.
func decryptBody(dec io.Reader, contentHash []byte) ([]byte, error) {
	hash := sha256.New()
	plain, err := io.ReadAll(io.TeeReader(dec, hash))
	if errors.Is(err, padding.ErrWrongPadding) {
		// A wrong key almost always shows up as bad padding first.
		return nil, ErrInvalidPassword
	}
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(hash.Sum(nil), contentHash) != 1 {
		return nil, ErrInvalidPassword
	}
	return plain, nil
}

// parse decodes the decrypted body into groups and entries and builds the tree.
func parse(c *cursor, h *Header) (*Database, error) {
	// Every record takes at least 6 bytes, so bogus counts can't force
	// a huge allocation.
	maxRecords := c.remaining()/6 + 1
	db := &Database{
		header:  *h,
		groups:  make([]*Group, 0, min(int(h.NumGroups), maxRecords)),
		entries: make([]*Entry, 0, min(int(h.NumEntries), maxRecords)),
	}
	levels := make([]uint16, 0, cap(db.groups))
	for i := 0; i < int(h.NumGroups); i++ {
		g, err := readGroupRecord(c, &levels)
		if err != nil {
			return nil, &recordError{"group", i, err}
		}
		g.db = db
		db.groups = append(db.groups, g)
	}
	for i := 0; i < int(h.NumEntries); i++ {
		e, err := readEntryRecord(c)
		if err != nil {
			return nil, &recordError{"entry", i, err}
		}
		e.db = db
		db.entries = append(db.entries, e)
	}
	if err := db.buildTree(levels); err != nil {
		return nil, err
	}
	return db, nil
}
