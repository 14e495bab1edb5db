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

// kdbview serves a read-only JSON view of a KeePass 1 database.
package main

import (
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/context"
	"github.com/gorilla/mux"
	"zombiezen.com/go/kdbview/pkg/keepass"
)

var (
	listen    = flag.String("listen", "[::]:8080", "address to listen on")
	dbPath    = flag.String("db", "", "path to database")
	sessionGC = flag.Duration("session_gc", 1*time.Minute, "frequency at which sessions are to be cleared from memory after expiring")
	showMeta  = flag.Bool("show_meta", false, "whether to list KeePass metadata entries")
)

// Read-only globals
var (
	router    *mux.Router
	dbStorage *storage
)

// Global state protected by mu.
var (
	mu       sync.Mutex
	sessions sessionStorage
)

// progress tracks the key derivation of the unlock in flight.
var progress progressTracker

func main() {
	flag.Parse()
	if *dbPath == "" {
		log.Println("must specify -db")
		os.Exit(1)
	}
	dbStorage = newStorage(*dbPath)
	if !dbStorage.exists() {
		log.Printf("warning: %s does not exist yet", *dbPath)
	}
	initHandlers()
	go gcSessions()
	if err := http.ListenAndServe(*listen, context.ClearHandler(router)); err != nil {
		log.Println("listen:", err)
		os.Exit(1)
	}
}

func initHandlers() {
	r := mux.NewRouter()
	r.Handle("/", appHandler(index)).Name("root").Methods("GET", "HEAD")
	r.Handle("/search", appHandler(handleSearch)).Methods("GET", "HEAD")
	r.Handle("/groups", appHandler(groupList)).Name("groupList").Methods("GET", "HEAD")
	r.Handle("/groups/{gid}", appHandler(viewGroup)).Name("viewGroup").Methods("GET", "HEAD")
	r.Handle("/groups/{gid}/entry/{uuid}", appHandler(viewEntry)).Name("viewEntry").Methods("GET", "HEAD")
	r.Handle("/_/unlock", appHandler(unlock)).Methods("POST")
	r.Handle("/_/lock", appHandler(lock)).Methods("POST")
	r.Handle("/_/progress", appHandler(handleProgress)).Methods("GET", "HEAD")
	r.NotFoundHandler = appHandler(func(http.ResponseWriter, *http.Request) error {
		return notFoundError{}
	})
	router = r
}

func gcSessions() {
	tick := time.Tick(*sessionGC)
	for {
		<-tick
		mu.Lock()
		n := sessions.clearInvalid()
		mu.Unlock()
		if n > 0 {
			log.Printf("cleared %d invalid sessions", n)
		}
	}
}

func index(w http.ResponseWriter, r *http.Request) error {
	tok, err := xsrfToken(w, r)
	if err != nil {
		return err
	}
	data := struct {
		Database  string        `json:"database"`
		Exists    bool          `json:"exists"`
		Unlocked  bool          `json:"unlocked"`
		XSRFToken string        `json:"xsrfToken"`
		Error     string        `json:"error,omitempty"`
		Progress  progressState `json:"progress"`
	}{
		Database:  filepath.Base(dbStorage.path),
		Exists:    dbStorage.exists(),
		Unlocked:  requestSession(r) != nil,
		XSRFToken: tok,
		Error:     r.FormValue("error"),
		Progress:  progress.state(),
	}
	return writeJSON(w, http.StatusOK, data)
}

// unlock decrypts the database with the submitted credentials and starts
// a session holding the decoded tree.
func unlock(w http.ResponseWriter, r *http.Request) error {
	f, err := dbStorage.open()
	if os.IsNotExist(err) {
		return userError{msg: "No database has been stored.", code: http.StatusNotFound, err: err}
	} else if err != nil {
		return err
	}
	defer f.Close()

	var keyFile io.Reader
	kf, _, err := r.FormFile("keyfile")
	switch {
	case err == nil:
		defer kf.Close()
		keyFile = kf
	case errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart):
	default:
		return userError{msg: "Could not read key file.", code: http.StatusBadRequest, err: err}
	}

	if !progress.start() {
		return userError{
			msg:  "Another unlock is in progress.",
			code: http.StatusConflict,
			err:  errors.New("concurrent unlock"),
		}
	}
	defer progress.finish()
	db, err := keepass.Open(f, &keepass.Options{
		Password: r.FormValue("password"),
		KeyFile:  keyFile,
		Progress: progress.report,
	})
	if err != nil {
		return databaseError(err)
	}

	mu.Lock()
	s, err := sessions.new(db)
	mu.Unlock()
	if err != nil {
		return err
	}
	s.attach(w)
	log.Printf("unlocked %s: %d groups, %d entries", filepath.Base(dbStorage.path), len(db.Groups()), len(db.Entries()))
	u, err := router.Get("groupList").URL()
	if err != nil {
		return err
	}
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
	return nil
}

func lock(w http.ResponseWriter, r *http.Request) error {
	if s := requestSession(r); s != nil {
		mu.Lock()
		sessions.remove(s)
		mu.Unlock()
	}
	clearSessionCookie(w)
	u, err := router.Get("root").URL()
	if err != nil {
		return err
	}
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
	return nil
}

func handleProgress(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, progress.state())
}

func groupList(w http.ResponseWriter, r *http.Request) error {
	db, err := requestDB(r)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newTreeView(db.Root()))
}

func viewGroup(w http.ResponseWriter, r *http.Request) error {
	db, err := requestDB(r)
	if err != nil {
		return err
	}
	params, err := extractRequestParams(db, r)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newGroupView(params.g))
}

func viewEntry(w http.ResponseWriter, r *http.Request) error {
	db, err := requestDB(r)
	if err != nil {
		return err
	}
	params, err := extractRequestParams(db, r)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newEntryView(params.e))
}

type requestParams struct {
	g *keepass.Group
	e *keepass.Entry
}

// rootGroupID is the path segment that names the synthetic root group.
const rootGroupID = "root"

func extractRequestParams(db *keepass.Database, r *http.Request) (requestParams, error) {
	v := mux.Vars(r)
	var p requestParams
	if gid := v["gid"]; gid == rootGroupID {
		p.g = db.Root()
	} else if gid != "" {
		id, err := strconv.ParseUint(gid, 10, 32)
		if err != nil {
			return requestParams{}, notFoundError{}
		}
		p.g = db.FindGroup(uint32(id))
		if p.g == nil {
			return requestParams{}, notFoundError{}
		}
	}
	if v["uuid"] != "" {
		id, err := uuid.Parse(v["uuid"])
		if err != nil {
			return requestParams{}, notFoundError{}
		}
		if p.g == nil {
			return requestParams{}, notFoundError{}
		}
		p.e = p.g.FindEntry(id)
		if p.e == nil || !visible(p.e) {
			return requestParams{}, notFoundError{}
		}
	}
	return p, nil
}

// visible reports whether e should be shown to clients.
func visible(e *keepass.Entry) bool {
	return *showMeta || !e.IsMetaStream()
}
