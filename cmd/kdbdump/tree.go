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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"zombiezen.com/go/kdbview/pkg/keepass"
)

func newTreeCmd(v *viper.Viper) *cobra.Command {
	c := &cobra.Command{
		Use:   "tree FILE",
		Short: "Decrypt a database and print its groups and entries",
		Long: `Decrypt a database and print its groups and entries.

Examples:
  # Prompt for the password and print an outline
  kdbdump tree passwords.kdb

  # Print everything, including passwords, as JSON
  echo "$PW" | kdbdump tree --password-stdin --show-passwords -f json passwords.kdb`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return runTree(cmd, cfg, args[0])
		},
	}
	c.Flags().Bool("show-meta", false, "include KeePass metadata entries")
	c.Flags().Bool("show-passwords", false, "include entry passwords in the output")
	c.Flags().StringP("key-file", "k", "", "key file to combine with the password")
	c.Flags().Bool("password-stdin", false, "read the password from the first line of stdin")
	return c
}

func runTree(cmd *cobra.Command, cfg *config, path string) error {
	pw, err := password(cmd, cfg)
	if err != nil {
		return err
	}
	opts := &keepass.Options{Password: pw}
	if cfg.KeyFile != "" {
		kf, err := os.Open(cfg.KeyFile)
		if err != nil {
			return err
		}
		defer kf.Close()
		opts.KeyFile = kf
	}
	if cfg.Verbose {
		stderr := cmd.ErrOrStderr()
		opts.Progress = func(done, total uint32) {
			if total == 0 {
				return
			}
			fmt.Fprintf(stderr, "\rderiving key: %3d%%", uint64(done)*100/uint64(total))
			if done == total {
				fmt.Fprintln(stderr)
			}
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	db, err := keepass.Open(f, opts)
	if err != nil {
		if keepass.IsRetryable(err) {
			return fmt.Errorf("%s: wrong password or key file", path)
		}
		return fmt.Errorf("%s: %w", path, err)
	}

	p := &treePrinter{showMeta: cfg.ShowMeta, showPasswords: cfg.ShowPasswords}
	out := cmd.OutOrStdout()
	if cfg.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p.group(db.Root()))
	}
	return p.printText(out, db.Root(), 0)
}

type treePrinter struct {
	showMeta      bool
	showPasswords bool
}

func (p *treePrinter) entries(g *keepass.Group) []*keepass.Entry {
	var list []*keepass.Entry
	for _, e := range g.Entries() {
		if p.showMeta || !e.IsMetaStream() {
			list = append(list, e)
		}
	}
	return list
}

func (p *treePrinter) printText(w io.Writer, g *keepass.Group, depth int) error {
	indent := strings.Repeat("  ", depth)
	if _, err := fmt.Fprintf(w, "%s%s/\n", indent, g.Title); err != nil {
		return err
	}
	for _, sub := range g.Groups() {
		if err := p.printText(w, sub, depth+1); err != nil {
			return err
		}
	}
	for _, e := range p.entries(g) {
		line := indent + "  " + e.Title
		if e.Username != "" {
			line += " <" + e.Username + ">"
		}
		if e.URL != "" {
			line += " " + e.URL
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		if p.showPasswords {
			if _, err := fmt.Fprintf(w, "%s    password: %s\n", indent, e.Password); err != nil {
				return err
			}
		}
	}
	return nil
}

type jsonGroup struct {
	ID      uint32      `json:"id"`
	Title   string      `json:"title"`
	Image   uint32      `json:"image"`
	Flags   uint32      `json:"flags,omitempty"`
	Expires *time.Time  `json:"expires,omitempty"`
	Groups  []jsonGroup `json:"groups"`
	Entries []jsonEntry `json:"entries"`
}

type jsonEntry struct {
	UUID       string     `json:"uuid"`
	Title      string     `json:"title"`
	Username   string     `json:"username,omitempty"`
	Password   string     `json:"password,omitempty"`
	URL        string     `json:"url,omitempty"`
	Comment    string     `json:"comment,omitempty"`
	Image      uint32     `json:"image"`
	Created    *time.Time `json:"created,omitempty"`
	Modified   *time.Time `json:"modified,omitempty"`
	Expires    *time.Time `json:"expires,omitempty"`
	BinaryDesc string     `json:"binaryDesc,omitempty"`
	BinarySize int        `json:"binarySize,omitempty"`
}

func optTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (p *treePrinter) group(g *keepass.Group) jsonGroup {
	jg := jsonGroup{
		ID:      g.ID,
		Title:   g.Title,
		Image:   g.Image,
		Flags:   g.Flags,
		Expires: optTime(g.ExpiryTime),
		Groups:  []jsonGroup{},
		Entries: []jsonEntry{},
	}
	for _, sub := range g.Groups() {
		jg.Groups = append(jg.Groups, p.group(sub))
	}
	for _, e := range p.entries(g) {
		je := jsonEntry{
			UUID:       e.UUID.String(),
			Title:      e.Title,
			Username:   e.Username,
			URL:        e.URL,
			Comment:    e.Comment,
			Image:      e.Image,
			Created:    optTime(e.CreationTime),
			Modified:   optTime(e.LastModificationTime),
			Expires:    optTime(e.ExpiryTime),
			BinaryDesc: e.BinaryDesc,
			BinarySize: len(e.Binary),
		}
		if p.showPasswords {
			je.Password = e.Password
		}
		jg.Entries = append(jg.Entries, je)
	}
	return jg
}
