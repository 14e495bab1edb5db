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
	"testing"
)

// newTestDatabase returns a database with groups titled A, B, C... whose
// IDs are 1, 2, 3...
func newTestDatabase(n int, entries ...*Entry) *Database {
	db := new(Database)
	for i := 0; i < n; i++ {
		db.groups = append(db.groups, &Group{
			ID:    uint32(i + 1),
			Title: string(rune('A' + i)),
			db:    db,
		})
	}
	for _, e := range entries {
		e.db = db
		db.entries = append(db.entries, e)
	}
	return db
}

// treeString formats g's subtree as "title(child child ...)".
func treeString(g *Group) string {
	sb := new(strings.Builder)
	sb.WriteString(g.Title)
	if g.NGroups() == 0 {
		return sb.String()
	}
	sb.WriteString("(")
	for i, sub := range g.Groups() {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(treeString(sub))
	}
	sb.WriteString(")")
	return sb.String()
}

func TestBuildTree(t *testing.T) {
	tests := []struct {
		levels []uint16
		want   string
	}{
		{[]uint16{}, "$ROOT$"},
		{[]uint16{0}, "$ROOT$(A)"},
		{[]uint16{0, 0, 0}, "$ROOT$(A B C)"},
		{[]uint16{0, 1, 2, 1, 0}, "$ROOT$(A(B(C) D) E)"},
		{[]uint16{0, 1, 1, 0, 1}, "$ROOT$(A(B C) D(E))"},
		{[]uint16{0, 1, 2, 2, 1, 2}, "$ROOT$(A(B(C D) E(F)))"},
		// Level jumps bigger than one land at the root.
		{[]uint16{0, 2}, "$ROOT$(A B)"},
		{[]uint16{0, 1, 3, 2}, "$ROOT$(A(B(D)) C)"},
		{[]uint16{1, 0}, "$ROOT$(A B)"},
		{[]uint16{5}, "$ROOT$(A)"},
	}
	for _, test := range tests {
		db := newTestDatabase(len(test.levels))
		if err := db.buildTree(test.levels); err != nil {
			t.Errorf("buildTree(%v) error: %v", test.levels, err)
			continue
		}
		if got := treeString(db.Root()); got != test.want {
			t.Errorf("buildTree(%v) = %s; want %s", test.levels, got, test.want)
		}
	}
}

func TestBuildTree_Links(t *testing.T) {
	db := newTestDatabase(5)
	if err := db.buildTree([]uint16{0, 1, 2, 1, 0}); err != nil {
		t.Fatal(err)
	}
	root := db.Root()
	if !root.IsRoot() || root.Parent() != nil {
		t.Errorf("root.IsRoot() = %t, root.Parent() = %v; want true, nil", root.IsRoot(), root.Parent())
	}
	if root.ID != RootID || root.Title != RootTitle {
		t.Errorf("root = {ID: %d, Title: %q}; want {ID: %d, Title: %q}", root.ID, root.Title, RootID, RootTitle)
	}
	tests := []struct {
		title  string
		parent string
		index  int
	}{
		{"A", "$ROOT$", 0},
		{"B", "A", 0},
		{"C", "B", 0},
		{"D", "A", 1},
		{"E", "$ROOT$", 1},
	}
	for i, test := range tests {
		g := db.groups[i]
		if g.Title != test.title {
			t.Fatalf("groups[%d].Title = %q; want %q", i, g.Title, test.title)
		}
		if g.IsRoot() {
			t.Errorf("%s.IsRoot() = true", g.Title)
		}
		if p := g.Parent(); p == nil || p.Title != test.parent {
			t.Errorf("%s.Parent() = %v; want %s", g.Title, p, test.parent)
		}
		if g.Index() != test.index {
			t.Errorf("%s.Index() = %d; want %d", g.Title, g.Index(), test.index)
		}
	}
}

func TestBuildTree_Entries(t *testing.T) {
	tests := []struct {
		name    string
		groups  int
		levels  []uint16
		groupID []uint32
		want    []string // title of the group holding each entry
	}{
		{
			name:    "matching IDs",
			groups:  3,
			levels:  []uint16{0, 1, 0},
			groupID: []uint32{2, 3, 1, 2},
			want:    []string{"B", "C", "A", "B"},
		},
		{
			name:    "orphan goes to first top-level group",
			groups:  3,
			levels:  []uint16{0, 1, 0},
			groupID: []uint32{99},
			want:    []string{"A"},
		},
		{
			name:    "orphan with a nested first group",
			groups:  3,
			levels:  []uint16{1, 0, 1},
			groupID: []uint32{0},
			want:    []string{"A"},
		},
		{
			name:    "no groups",
			groups:  0,
			levels:  []uint16{},
			groupID: []uint32{1, 2},
			want:    []string{"$ROOT$", "$ROOT$"},
		},
	}
	for _, test := range tests {
		var entries []*Entry
		for i, id := range test.groupID {
			entries = append(entries, &Entry{Title: fmt.Sprint(i), GroupID: id})
		}
		db := newTestDatabase(test.groups, entries...)
		if err := db.buildTree(test.levels); err != nil {
			t.Errorf("%s: buildTree error: %v", test.name, err)
			continue
		}
		counts := make(map[*Group]int)
		for i, e := range entries {
			g := e.Group()
			if g.Title != test.want[i] {
				t.Errorf("%s: entry %d in group %q; want %q", test.name, i, g.Title, test.want[i])
				continue
			}
			if e.Index() != counts[g] || g.Entry(e.Index()) != e {
				t.Errorf("%s: entry %d has index %d in %q; want %d", test.name, i, e.Index(), g.Title, counts[g])
			}
			counts[g]++
		}
	}
}

func TestBuildTree_DuplicateGroupID(t *testing.T) {
	e := &Entry{GroupID: 7}
	db := newTestDatabase(2, e)
	db.groups[0].ID = 7
	db.groups[1].ID = 7
	if err := db.buildTree([]uint16{0, 0}); err != nil {
		t.Fatal(err)
	}
	if g := e.Group(); g != db.groups[0] {
		t.Errorf("entry attached to %q; want first group with ID 7", g.Title)
	}
	if g := db.FindGroup(7); g != db.groups[0] {
		t.Errorf("FindGroup(7) = %q; want first group", g.Title)
	}
}

func TestBuildTree_LevelCount(t *testing.T) {
	db := newTestDatabase(3)
	err := db.buildTree([]uint16{0, 1})
	if !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("buildTree with 2 levels for 3 groups error = %v; want %v", err, ErrMalformedRecord)
	}
}
