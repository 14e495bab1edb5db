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

package main

import (
	"strconv"
	"time"

	"zombiezen.com/go/kdbview/pkg/keepass"
)

// JSON shapes sent to clients.  Only entry views carry passwords.

type groupSummary struct {
	ID       uint32 `json:"id"`
	Title    string `json:"title"`
	Image    uint32 `json:"image"`
	NGroups  int    `json:"groups"`
	NEntries int    `json:"entries"`
	Href     string `json:"href"`
}

type entrySummary struct {
	UUID     string `json:"uuid"`
	Title    string `json:"title"`
	Username string `json:"username,omitempty"`
	URL      string `json:"url,omitempty"`
	Image    uint32 `json:"image"`
	Href     string `json:"href"`
}

type timesView struct {
	Created  *time.Time `json:"created,omitempty"`
	Modified *time.Time `json:"modified,omitempty"`
	Accessed *time.Time `json:"accessed,omitempty"`
	Expires  *time.Time `json:"expires,omitempty"`
}

type treeView struct {
	groupSummary
	Children []treeView     `json:"children"`
	Items    []entrySummary `json:"items"`
}

type groupView struct {
	groupSummary
	Flags   uint32         `json:"flags"`
	Times   timesView      `json:"times"`
	Parent  *groupSummary  `json:"parent,omitempty"`
	Groups  []groupSummary `json:"subgroups"`
	Entries []entrySummary `json:"items"`
}

type entryView struct {
	entrySummary
	Password   string       `json:"password"`
	Comment    string       `json:"comment,omitempty"`
	Times      timesView    `json:"times"`
	BinaryDesc string       `json:"binaryDesc,omitempty"`
	BinarySize int          `json:"binarySize,omitempty"`
	Group      groupSummary `json:"group"`
}

func groupPathID(g *keepass.Group) string {
	if g.IsRoot() {
		return rootGroupID
	}
	return strconv.FormatUint(uint64(g.ID), 10)
}

func newGroupSummary(g *keepass.Group) groupSummary {
	gs := groupSummary{
		ID:      g.ID,
		Title:   g.Title,
		Image:   g.Image,
		NGroups: g.NGroups(),
	}
	for _, e := range g.Entries() {
		if visible(e) {
			gs.NEntries++
		}
	}
	if u, err := router.Get("viewGroup").URL("gid", groupPathID(g)); err == nil {
		gs.Href = u.String()
	}
	return gs
}

func newEntrySummary(e *keepass.Entry) entrySummary {
	es := entrySummary{
		UUID:     e.UUID.String(),
		Title:    e.Title,
		Username: e.Username,
		URL:      e.URL,
		Image:    e.Image,
	}
	if u, err := router.Get("viewEntry").URL("gid", groupPathID(e.Group()), "uuid", es.UUID); err == nil {
		es.Href = u.String()
	}
	return es
}

func newTimesView(ti *keepass.TimeInfo) timesView {
	opt := func(t time.Time) *time.Time {
		if t.IsZero() {
			return nil
		}
		return &t
	}
	return timesView{
		Created:  opt(ti.CreationTime),
		Modified: opt(ti.LastModificationTime),
		Accessed: opt(ti.LastAccessTime),
		Expires:  opt(ti.ExpiryTime),
	}
}

func visibleEntries(g *keepass.Group) []entrySummary {
	list := []entrySummary{}
	for _, e := range g.Entries() {
		if visible(e) {
			list = append(list, newEntrySummary(e))
		}
	}
	return list
}

func newTreeView(g *keepass.Group) treeView {
	tv := treeView{
		groupSummary: newGroupSummary(g),
		Children:     []treeView{},
		Items:        visibleEntries(g),
	}
	for _, sub := range g.Groups() {
		tv.Children = append(tv.Children, newTreeView(sub))
	}
	return tv
}

func newGroupView(g *keepass.Group) groupView {
	gv := groupView{
		groupSummary: newGroupSummary(g),
		Flags:        g.Flags,
		Times:        newTimesView(&g.TimeInfo),
		Groups:       []groupSummary{},
		Entries:      visibleEntries(g),
	}
	if p := g.Parent(); p != nil {
		ps := newGroupSummary(p)
		gv.Parent = &ps
	}
	for _, sub := range g.Groups() {
		gv.Groups = append(gv.Groups, newGroupSummary(sub))
	}
	return gv
}

func newEntryView(e *keepass.Entry) entryView {
	return entryView{
		entrySummary: newEntrySummary(e),
		Password:     e.Password,
		Comment:      e.Comment,
		Times:        newTimesView(&e.TimeInfo),
		BinaryDesc:   e.BinaryDesc,
		BinarySize:   len(e.Binary),
		Group:        newGroupSummary(e.Group()),
	}
}
