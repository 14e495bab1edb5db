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

package main

import (
	"net/http"
	"unicode"

	"golang.org/x/text/language"
	textsearch "golang.org/x/text/search"

	"zombiezen.com/go/kdbview/pkg/keepass"
)

func handleSearch(w http.ResponseWriter, r *http.Request) error {
	db, err := requestDB(r)
	if err != nil {
		return err
	}
	data := struct {
		Query   string         `json:"query"`
		Results []entrySummary `json:"results"`
	}{
		Query:   r.FormValue("q"),
		Results: []entrySummary{},
	}
	pq := parseQuery(data.Query)
	if pq == nil {
		data.Query = ""
	}
	for _, e := range search(db, pq) {
		data.Results = append(data.Results, newEntrySummary(e))
	}
	return writeJSON(w, http.StatusOK, data)
}

// search returns the visible entries that contain every word of q in
// their title, username, or URL.
func search(db *keepass.Database, q *parsedQuery) []*keepass.Entry {
	var results []*keepass.Entry
	for _, e := range db.Entries() {
		if !visible(e) {
			continue
		}
		if q.matchesText(e.Title + "\n" + e.Username + "\n" + e.URL) {
			results = append(results, e)
		}
	}
	return results
}

type parsedQuery struct {
	pats []*textsearch.Pattern
}

func parseQuery(query string) *parsedQuery {
	if len(query) == 0 {
		return nil
	}
	var words []string
	start := -1
	for i, r := range query {
		space := unicode.IsSpace(r)
		if space && start != -1 {
			words = append(words, query[start:i])
			start = -1
		} else if !space && start == -1 {
			start = i
		}
	}
	if start != -1 {
		words = append(words, query[start:])
	}
	if len(words) == 0 {
		return nil
	}
	m := textsearch.New(language.Und, textsearch.Loose)
	pq := &parsedQuery{pats: make([]*textsearch.Pattern, len(words))}
	for i := range words {
		pq.pats[i] = m.CompileString(words[i])
	}
	return pq
}

func (pq *parsedQuery) matchesText(s string) bool {
	if pq == nil || len(pq.pats) == 0 {
		return false
	}
	for _, pat := range pq.pats {
		if start, _ := pat.IndexString(s); start == -1 {
			return false
		}
	}
	return true
}
