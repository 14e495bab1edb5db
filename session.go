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
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"zombiezen.com/go/kdbview/pkg/keepass"
)

// Session flags.
var (
	sessionExpiry = flag.Duration("session_expiry", 30*time.Minute, "length of time that a session token is valid")
	tokenSize     = flag.Int("token_size", 33, "size of the session tokens sent to the client (in bytes)")
)

// sessionCookie is the name of browser cookie containing the session token.
const sessionCookie = "kdbview_session"

// sessionStorage holds unlocked databases keyed by session token.
// The zero value uses the wall clock and crypto/rand.
type sessionStorage struct {
	s    map[string]*session
	now  func() time.Time
	rand io.Reader
}

// new creates a new session and token for db.
func (ss *sessionStorage) new(db *keepass.Database) (*session, error) {
	buf := make([]byte, *tokenSize)
	r := ss.rand
	if r == nil {
		r = rand.Reader
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("generate session token: %v", err)
	}
	tok := base64.URLEncoding.EncodeToString(buf)
	s := &session{
		token:   tok,
		expires: ss.time().Add(*sessionExpiry),
		db:      db,
	}
	if ss.s == nil {
		ss.s = make(map[string]*session)
	}
	ss.s[tok] = s
	return s, nil
}

// fromRequest returns the request's session or nil if it has none or it expired.
func (ss *sessionStorage) fromRequest(r *http.Request) *session {
	if ss.s == nil {
		return nil
	}
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	s := ss.s[c.Value]
	if !s.isValid(ss.time()) {
		return nil
	}
	return s
}

func (ss *sessionStorage) remove(s *session) {
	delete(ss.s, s.token)
}

// clearInvalid removes expired sessions and returns the number removed.
func (ss *sessionStorage) clearInvalid() int {
	now := ss.time()
	n := 0
	for tok, s := range ss.s {
		if !s.isValid(now) {
			delete(ss.s, tok)
			n++
		}
	}
	return n
}

func (ss *sessionStorage) time() time.Time {
	if ss.now == nil {
		return time.Now()
	}
	return ss.now()
}

type session struct {
	token   string
	expires time.Time
	db      *keepass.Database
}

func (s *session) isValid(now time.Time) bool {
	return s != nil && now.Before(s.expires)
}

func (s *session) attach(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.token,
		Path:     "/",
		MaxAge:   int(*sessionExpiry / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}
