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

import "time"

// Field types
const (
	groupIDField                   = 0x0001
	groupTitleField                = 0x0002
	groupCreationTimeField         = 0x0003
	groupLastModificationTimeField = 0x0004
	groupLastAccessTimeField       = 0x0005
	groupExpiryTimeField           = 0x0006
	groupImageField                = 0x0007
	groupLevelField                = 0x0008
	groupFlagsField                = 0x0009

	entryUUIDField                 = 0x0001
	entryGroupIDField              = 0x0002
	entryImageField                = 0x0003
	entryTitleField                = 0x0004
	entryURLField                  = 0x0005
	entryUsernameField             = 0x0006
	entryPasswordField             = 0x0007
	entryCommentField              = 0x0008
	entryCreationTimeField         = 0x0009
	entryLastModificationTimeField = 0x000a
	entryLastAccessTimeField       = 0x000b
	entryExpiryTimeField           = 0x000c
	entryBinaryDescField           = 0x000d
	entryBinaryField               = 0x000e

	fieldTerminator = 0xffff
)

// readField reads one type-length-value field.  val aliases the cursor's buffer.
func readField(c *cursor) (typ uint16, val []byte, err error) {
	typ, err = c.readU16LE()
	if err != nil {
		return 0, nil, err
	}
	n, err := c.readU32LE()
	if err != nil {
		return 0, nil, err
	}
	val, err = c.readBytes(int(n))
	return typ, val, err
}

// readGroupRecord reads fields up to the terminator.  Each level field is
// appended to levels, in file order across all groups.
func readGroupRecord(c *cursor, levels *[]uint16) (*Group, error) {
	g := new(Group)
	for {
		typ, val, err := readField(c)
		if err != nil {
			return nil, err
		}
		switch typ {
		case fieldTerminator:
			return g, nil
		case groupIDField:
			g.ID, err = fieldUint32("group ID", val)
		case groupTitleField:
			g.Title = fieldString(val)
		case groupCreationTimeField:
			g.CreationTime, err = fieldDate("group creation time", val)
		case groupLastModificationTimeField:
			g.LastModificationTime, err = fieldDate("group modification time", val)
		case groupLastAccessTimeField:
			g.LastAccessTime, err = fieldDate("group access time", val)
		case groupExpiryTimeField:
			g.ExpiryTime, err = fieldDate("group expiry time", val)
		case groupImageField:
			g.Image, err = fieldUint32("group image", val)
		case groupLevelField:
			var level uint16
			level, err = fieldUint16("group level", val)
			if err == nil {
				*levels = append(*levels, level)
			}
		case groupFlagsField:
			g.Flags, err = fieldUint32("group flags", val)
		}
		if err != nil {
			return nil, err
		}
	}
}

func readEntryRecord(c *cursor) (*Entry, error) {
	e := new(Entry)
	for {
		typ, val, err := readField(c)
		if err != nil {
			return nil, err
		}
		switch typ {
		case fieldTerminator:
			return e, nil
		case entryUUIDField:
			if err = verifyFieldSize("entry UUID", val, len(e.UUID)); err == nil {
				copy(e.UUID[:], val)
			}
		case entryGroupIDField:
			e.GroupID, err = fieldUint32("entry group ID", val)
		case entryImageField:
			e.Image, err = fieldUint32("entry image", val)
		case entryTitleField:
			e.Title = fieldString(val)
		case entryURLField:
			e.URL = fieldString(val)
		case entryUsernameField:
			e.Username = fieldString(val)
		case entryPasswordField:
			e.Password = fieldString(val)
		case entryCommentField:
			e.Comment = fieldString(val)
		case entryCreationTimeField:
			e.CreationTime, err = fieldDate("entry creation time", val)
		case entryLastModificationTimeField:
			e.LastModificationTime, err = fieldDate("entry modification time", val)
		case entryLastAccessTimeField:
			e.LastAccessTime, err = fieldDate("entry access time", val)
		case entryExpiryTimeField:
			e.ExpiryTime, err = fieldDate("entry expiry time", val)
		case entryBinaryDescField:
			e.BinaryDesc = fieldString(val)
		case entryBinaryField:
			e.Binary = append([]byte{}, val...)
		}
		if err != nil {
			return nil, err
		}
	}
}

func fieldUint16(name string, val []byte) (uint16, error) {
	if err := verifyFieldSize(name, val, 2); err != nil {
		return 0, err
	}
	return newCursor(val).readU16LE()
}

func fieldUint32(name string, val []byte) (uint32, error) {
	if err := verifyFieldSize(name, val, 4); err != nil {
		return 0, err
	}
	return newCursor(val).readU32LE()
}

// fieldString decodes a zero-terminated string field.  A field without a
// terminator is used whole.
func fieldString(val []byte) string {
	s, err := newCursor(val).readCString()
	if err != nil {
		return latin1(val)
	}
	return s
}

// fieldDate decodes a date field, mapping the "never" date to the zero time.
func fieldDate(name string, val []byte) (time.Time, error) {
	if err := verifyFieldSize(name, val, 5); err != nil {
		return time.Time{}, err
	}
	t, err := newCursor(val).readPackedDate()
	if err != nil {
		return time.Time{}, err
	}
	if t.Equal(neverDate) {
		return time.Time{}, nil
	}
	return t, nil
}

func verifyFieldSize(name string, val []byte, want int) error {
	if n := len(val); n != want {
		return &fieldSizeError{name, n, want}
	}
	return nil
}
