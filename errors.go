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
	"errors"
	"net/http"

	"zombiezen.com/go/kdbview/pkg/keepass"
)

func isUserError(e error) bool {
	return userErrorMessage(e) != ""
}

func userErrorMessage(e error) string {
	ue, ok := e.(interface {
		UserError() string
	})
	if !ok {
		return ""
	}
	return ue.UserError()
}

func errorStatusCode(e error) int {
	sc, ok := e.(interface {
		StatusCode() int
	})
	if !ok {
		return http.StatusInternalServerError
	}
	return sc.StatusCode()
}

func errorRedirect(e error) (code int, u string) {
	r, ok := e.(interface {
		RedirectURL() string
		StatusCode() int
	})
	if !ok {
		return 0, ""
	}
	return r.StatusCode(), r.RedirectURL()
}

// userError is an error whose message can be shown to the client.
// A zero code means 400 Bad Request.
type userError struct {
	msg  string
	code int
	err  error
}

func (ue userError) Error() string {
	return ue.err.Error()
}

func (ue userError) Unwrap() error {
	return ue.err
}

func (ue userError) UserError() string {
	return ue.msg
}

func (ue userError) StatusCode() int {
	if ue.code == 0 {
		return http.StatusBadRequest
	}
	return ue.code
}

// databaseError converts an error from keepass.Open into a message for
// the person unlocking the database.
func databaseError(err error) error {
	var msg string
	code := http.StatusUnprocessableEntity
	switch {
	case keepass.IsRetryable(err):
		msg = "Wrong password or key file. Please try again."
		code = http.StatusForbidden
	case errors.Is(err, keepass.ErrUnsupportedVersion):
		msg = "The stored file is not a KeePass 1 database."
	case errors.Is(err, keepass.ErrUnsupportedCipher):
		msg = "The database uses an unsupported encryption algorithm."
	case errors.Is(err, keepass.ErrOutOfData), errors.Is(err, keepass.ErrMalformedRecord):
		msg = "The database file is damaged."
	default:
		return err
	}
	return userError{msg: msg, code: code, err: err}
}

type xsrfError struct {
	err error
}

func (xe xsrfError) Error() string {
	return "check xsrf: " + xe.err.Error()
}

func (xe xsrfError) UserError() string {
	return "invalid XSRF token"
}

func (xe xsrfError) StatusCode() int {
	return http.StatusBadRequest
}

type notFoundError struct{}

func (notFoundError) Error() string {
	return "not found"
}

func (notFoundError) UserError() string {
	return "404 page not found"
}

func (notFoundError) StatusCode() int {
	return http.StatusNotFound
}

// rootRedirectError sends the client back to the index with a message.
type rootRedirectError struct {
	err error
}

var errInvalidSession = rootRedirectError{
	err: userError{
		msg: "Invalid session. Please enter your credentials again.",
		err: errors.New("invalid session"),
	},
}

func (e rootRedirectError) Error() string {
	return e.err.Error()
}

func (e rootRedirectError) UserError() string {
	msg := userErrorMessage(e.err)
	if msg == "" {
		return e.err.Error()
	}
	return msg
}

func (e rootRedirectError) StatusCode() int {
	return http.StatusSeeOther
}

func (e rootRedirectError) RedirectURL() string {
	u, _ := router.Get("root").URL()
	q := u.Query()
	q.Set("error", e.UserError())
	u.RawQuery = q.Encode()
	return u.String()
}
