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
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/context"
	"zombiezen.com/go/kdbview/pkg/keepass"
	"zombiezen.com/go/kdbview/third_party/responsestats"
)

var (
	maxRequestSize = flag.Int64("max_request_size", 2<<20, "number of bytes to limit requests to")
	xsrfTokenSize  = flag.Int("xsrf_token_size", 33, "size of the XSRF tokens sent to the client (in bytes)")
)

type appHandler func(http.ResponseWriter, *http.Request) error

func (f appHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, *maxRequestSize)
	if err := parseMultipartForm(r); err != nil {
		log.Printf("%s %s fail form parse: %v", r.Method, r.URL.Path, err)
		writeError(w, "could not parse form", http.StatusBadRequest)
		return
	}
	if !isSafeMethod(r.Method) {
		if err := checkXSRF(r); err != nil {
			log.Printf("%s %s client error: %v", r.Method, r.URL.Path, err)
			writeError(w, userErrorMessage(err), errorStatusCode(err))
			return
		}
	}
	stashSession(r)
	w.Header().Set("Cache-Control", "private, no-store")
	stats := responsestats.New(w)
	err := f(stats, r)
	if err != nil {
		if isUserError(err) {
			log.Printf("%s %s client error: %v", r.Method, r.URL.Path, err)
		} else {
			log.Printf("%s %s server error: %v", r.Method, r.URL.Path, err)
		}
		if code, u := errorRedirect(err); u != "" {
			http.Redirect(w, r, u, code)
			return
		}
		if stats.StatusCode() == 0 {
			msg := userErrorMessage(err)
			if msg == "" {
				msg = "internal server error; check logs"
			}
			writeError(w, msg, errorStatusCode(err))
		}
	}
}

func isSafeMethod(method string) bool {
	return method == "GET" || method == "HEAD" || method == "OPTIONS" || method == "TRACE"
}

// parseMultipartForm parses the request form.  Safe methods only get their
// query parsed, since clients may resend a stale Content-Type on redirects.
func parseMultipartForm(r *http.Request) error {
	if isSafeMethod(r.Method) {
		return r.ParseForm()
	}
	err := r.ParseMultipartForm(*maxRequestSize)
	if err == http.ErrNotMultipart {
		return nil
	}
	if err != nil {
		return err
	}
	if err := r.MultipartForm.RemoveAll(); err != nil {
		// This is likely to never occur, since the request should be limited to maxRequestSize.
		log.Println("form cleanup:", err)
	}
	return nil
}

// writeJSON sends v as the response body.
func writeJSON(w http.ResponseWriter, code int, v interface{}) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, err = w.Write(append(body, '\n'))
	return err
}

func writeError(w http.ResponseWriter, msg string, code int) {
	if err := writeJSON(w, code, struct {
		Error string `json:"error"`
	}{msg}); err != nil {
		log.Println("write error response:", err)
	}
}

type contextKey int

// sessionKey is the gorilla/context key for the request's valid session.
const sessionKey contextKey = 0

// stashSession looks up the request's session and stores it in the
// request context if it is still valid.
func stashSession(r *http.Request) {
	mu.Lock()
	s := sessions.fromRequest(r)
	mu.Unlock()
	if s != nil {
		context.Set(r, sessionKey, s)
	}
}

// requestSession returns the session stashed for r or nil.
func requestSession(r *http.Request) *session {
	s, _ := context.Get(r, sessionKey).(*session)
	return s
}

// requestDB returns the database unlocked by r's session.
func requestDB(r *http.Request) (*keepass.Database, error) {
	s := requestSession(r)
	if s == nil {
		return nil, errInvalidSession
	}
	return s.db, nil
}

// xsrfCookie is the name of browser cookie containing the session-independent XSRF token.
const xsrfCookie = "kdbview_xsrf"

const xsrfFormName = "xsrftoken"

// xsrfToken either returns the XSRF token from the cookie or generates
// a new one and sets the XSRF cookie.
func xsrfToken(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(xsrfCookie); err == nil && c.Value != "" {
		return c.Value, nil
	} else if err != http.ErrNoCookie && err != nil {
		return "", fmt.Errorf("read xsrf token: %v", err)
	}
	buf := make([]byte, *xsrfTokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate xsrf token: %v", err)
	}
	tok := base64.StdEncoding.EncodeToString(buf)
	http.SetCookie(w, &http.Cookie{
		Name:     xsrfCookie,
		Value:    tok,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
	})
	return tok, nil
}

func checkXSRF(r *http.Request) error {
	c, err := r.Cookie(xsrfCookie)
	if err != nil {
		return xsrfError{err}
	} else if c.Value == "" {
		return xsrfError{fmt.Errorf("empty cookie")}
	}
	if fv := r.FormValue(xsrfFormName); fv != c.Value {
		return xsrfError{fmt.Errorf("form value does not match cookie")}
	}
	return nil
}
