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

import "fmt"

// buildTree attaches db.groups and db.entries under a new root group.
// levels[i] is the nesting level of db.groups[i].
func (db *Database) buildTree(levels []uint16) error {
	if len(levels) != len(db.groups) {
		return fmt.Errorf("%w: %d level fields for %d groups", ErrMalformedRecord, len(levels), len(db.groups))
	}
	db.root = &Group{
		ID:     RootID,
		Title:  RootTitle,
		db:     db,
		parent: noParent,
	}
	for i, g := range db.groups {
		p := findGroupParent(levels, i)
		if p == atRoot {
			db.root.addGroup(g, atRoot)
		} else {
			db.groups[p].addGroup(g, p)
		}
	}
	for _, e := range db.entries {
		if i := db.groupIndex(e.GroupID); i >= 0 {
			db.groups[i].addEntry(e, i)
		} else if db.root.NGroups() > 0 {
			// Orphans go to the first top-level group.
			first := db.root.groups[0]
			first.addEntry(e, first.position())
		} else {
			db.root.addEntry(e, atRoot)
		}
	}
	return nil
}

// findGroupParent returns the index of the parent of group i or atRoot.
// The parent is the nearest preceding group with a lower level, as long
// as that level is exactly one less; any bigger jump puts the group at
// the root.
func findGroupParent(levels []uint16, i int) int {
	level := levels[i]
	if level == 0 {
		return atRoot
	}
	for j := i - 1; j >= 0; j-- {
		if levels[j] < level {
			if level-levels[j] != 1 {
				return atRoot
			}
			return j
		}
	}
	return atRoot
}

// groupIndex returns the index of the first group with the given ID or -1.
func (db *Database) groupIndex(id uint32) int {
	for i, g := range db.groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// position returns the group's index in db.groups.
func (g *Group) position() int {
	for i, gg := range g.db.groups {
		if gg == g {
			return i
		}
	}
	return atRoot
}
