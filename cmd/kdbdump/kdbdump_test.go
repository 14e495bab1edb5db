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
	"bytes"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zombiezen.com/go/kdbview/internal/kdbtest"
	"zombiezen.com/go/kdbview/pkg/keepass"
)

func sampleFile() *kdbtest.File {
	return &kdbtest.File{
		Password: "swordfish",
		Rounds:   300,
		Groups: []kdbtest.Group{
			{ID: 1, Title: "Internet", Level: 0},
			{ID: 2, Title: "eMail", Level: 1},
			{ID: 3, Title: "Banking", Level: 0},
		},
		Entries: []kdbtest.Entry{
			{UUID: [16]byte{0: 1}, GroupID: 2, Title: "Mail", Username: "alice", Password: "hunter2", URL: "https://mail.example.com/"},
			{UUID: [16]byte{0: 2}, GroupID: 3, Title: "Bank", Username: "alice", Password: "s3cret"},
			{
				UUID:       [16]byte{0: 3},
				GroupID:    1,
				Title:      "Meta-Info",
				Username:   "SYSTEM",
				URL:        "$",
				Comment:    "KPX_GROUP_TREE_STATE",
				BinaryDesc: "bin-stream",
				Binary:     []byte{1, 0, 0, 0},
			},
		},
	}
}

// writeFile writes f to a temporary directory and returns its path.
func writeFile(t *testing.T, f *kdbtest.File) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.kdb")
	require.NoError(t, os.WriteFile(path, f.MustBytes(), 0600))
	return path
}

type result struct {
	stdout string
	stderr string
	err    error
}

// run executes kdbdump with an isolated home directory and environment.
func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, name := range []string{"KDBDUMP_PASSWORD", "KDBDUMP_FORMAT", "KDBDUMP_SHOW_META", "KDBDUMP_SHOW_PASSWORDS", "KDBDUMP_KEY_FILE"} {
		if _, ok := os.LookupEnv(name); ok {
			t.Setenv(name, "")
		}
	}
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return result{stdout.String(), stderr.String(), err}
}

func TestTree_Text(t *testing.T) {
	path := writeFile(t, sampleFile())
	r := run(t, "swordfish\n", "tree", "--password-stdin", path)
	require.NoError(t, r.err)
	want := "$ROOT$/\n" +
		"  Internet/\n" +
		"    eMail/\n" +
		"      Mail <alice> https://mail.example.com/\n" +
		"  Banking/\n" +
		"    Bank <alice>\n"
	assert.Equal(t, want, r.stdout)
	assert.NotContains(t, r.stdout, "hunter2")
}

func TestTree_ShowPasswordsAndMeta(t *testing.T) {
	path := writeFile(t, sampleFile())
	r := run(t, "swordfish", "tree", "--password-stdin", "--show-passwords", "--show-meta", path)
	require.NoError(t, r.err)
	want := "$ROOT$/\n" +
		"  Internet/\n" +
		"    eMail/\n" +
		"      Mail <alice> https://mail.example.com/\n" +
		"        password: hunter2\n" +
		"    Meta-Info <SYSTEM> $\n" +
		"      password: \n" +
		"  Banking/\n" +
		"    Bank <alice>\n" +
		"      password: s3cret\n"
	assert.Equal(t, want, r.stdout)
}

func TestTree_JSON(t *testing.T) {
	path := writeFile(t, sampleFile())
	r := run(t, "swordfish\n", "tree", "--password-stdin", "--format", "json", path)
	require.NoError(t, r.err)

	var root jsonGroup
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &root))
	assert.Equal(t, keepass.RootTitle, root.Title)
	require.Len(t, root.Groups, 2)
	internet := root.Groups[0]
	assert.Equal(t, "Internet", internet.Title)
	assert.Empty(t, internet.Entries, "metadata entry should be hidden")
	require.Len(t, internet.Groups, 1)
	require.Len(t, internet.Groups[0].Entries, 1)
	mail := internet.Groups[0].Entries[0]
	assert.Equal(t, "01000000-0000-0000-0000-000000000000", mail.UUID)
	assert.Equal(t, "Mail", mail.Title)
	assert.Empty(t, mail.Password)
	assert.Nil(t, mail.Expires)
}

func TestTree_PasswordFromEnvironment(t *testing.T) {
	path := writeFile(t, sampleFile())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("KDBDUMP_PASSWORD", "swordfish")
	t.Setenv("KDBDUMP_SHOW_PASSWORDS", "true")
	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"tree", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "password: hunter2")
}

func TestTree_ConfigFile(t *testing.T) {
	path := writeFile(t, sampleFile())
	cfgPath := filepath.Join(t.TempDir(), "kdbdump.yaml")
	cfg := "password: swordfish\nformat: json\nshow-meta: true\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0600))

	r := run(t, "", "tree", "--config", cfgPath, path)
	require.NoError(t, r.err)
	var root jsonGroup
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &root))
	require.Len(t, root.Groups, 2)
	require.Len(t, root.Groups[0].Entries, 1)
	assert.Equal(t, "Meta-Info", root.Groups[0].Entries[0].Title)
	assert.Equal(t, "bin-stream", root.Groups[0].Entries[0].BinaryDesc)
	assert.Equal(t, 4, root.Groups[0].Entries[0].BinarySize)

	// Flags override the file.
	r = run(t, "", "tree", "--config", cfgPath, "--format", "text", path)
	require.NoError(t, r.err)
	assert.True(t, strings.HasPrefix(r.stdout, "$ROOT$/\n"), "output = %q", r.stdout)
}

func TestTree_MissingConfigFile(t *testing.T) {
	path := writeFile(t, sampleFile())
	r := run(t, "swordfish", "tree", "--password-stdin", "--config", filepath.Join(t.TempDir(), "nope.yaml"), path)
	assert.Error(t, r.err)
}

func TestTree_KeyFile(t *testing.T) {
	f := sampleFile()
	f.KeyFile = []byte(strings.Repeat("ab", 32))
	path := writeFile(t, f)
	keyPath := filepath.Join(t.TempDir(), "sample.key")
	require.NoError(t, os.WriteFile(keyPath, f.KeyFile, 0600))

	r := run(t, "swordfish\n", "tree", "--password-stdin", "--key-file", keyPath, path)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "Mail <alice>")

	r = run(t, "swordfish\n", "tree", "--password-stdin", path)
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "wrong password")
}

func TestTree_KeyFileOnly(t *testing.T) {
	f := sampleFile()
	f.Password = ""
	f.KeyFile = []byte("a key file that is hashed")
	path := writeFile(t, f)
	keyPath := filepath.Join(t.TempDir(), "sample.key")
	require.NoError(t, os.WriteFile(keyPath, f.KeyFile, 0600))

	r := run(t, "", "tree", "--key-file", keyPath, path)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "Bank <alice>")
}

func TestTree_Errors(t *testing.T) {
	path := writeFile(t, sampleFile())

	r := run(t, "hunter2\n", "tree", "--password-stdin", path)
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "wrong password")

	r = run(t, "", "tree", path)
	assert.ErrorIs(t, r.err, errNoPassword)

	r = run(t, "swordfish\n", "tree", "--password-stdin", "--format", "xml", path)
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "xml")

	r = run(t, "swordfish\n", "tree", "--password-stdin", filepath.Join(t.TempDir(), "missing.kdb"))
	assert.ErrorIs(t, r.err, os.ErrNotExist)

	r = run(t, "swordfish\n", "tree", "--password-stdin")
	assert.Error(t, r.err, "missing file argument")
}

func TestTree_Verbose(t *testing.T) {
	path := writeFile(t, sampleFile())
	r := run(t, "swordfish\n", "tree", "-v", "--password-stdin", path)
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "deriving key:  83%")
	assert.True(t, strings.HasSuffix(r.stderr, "deriving key: 100%\n"), "stderr = %q", r.stderr)
}

func TestHeader_Text(t *testing.T) {
	path := writeFile(t, sampleFile())
	r := run(t, "", "header", path)
	require.NoError(t, r.err)
	assert.Regexp(t, `(?m)^flags:\s+SHA2\|Rijndael$`, r.stdout)
	assert.Regexp(t, `(?m)^cipher:\s+Rijndael$`, r.stdout)
	assert.Regexp(t, `(?m)^transform rounds: 300$`, r.stdout)
	assert.Regexp(t, `(?m)^groups:\s+3$`, r.stdout)
}

func TestHeader_JSON(t *testing.T) {
	f := sampleFile()
	f.Cipher = keepass.TwofishCipher
	path := writeFile(t, f)
	r := run(t, "", "header", "-f", "json", path)
	require.NoError(t, r.err)

	var info headerInfo
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &info))
	assert.Equal(t, "SHA2|Twofish", info.Flags)
	assert.Equal(t, "Twofish", info.Cipher)
	assert.Equal(t, "0x00030004", info.Version)
	assert.Equal(t, uint32(3), info.NumGroups)
	assert.Equal(t, uint32(3), info.NumEntries)
	assert.Equal(t, uint32(300), info.TransformRounds)
	assert.Equal(t, hex.EncodeToString(kdbtest.MasterSeed[:]), info.MasterSeed)
	assert.Equal(t, hex.EncodeToString(kdbtest.IV[:]), info.IV)
}

func TestHeader_UnsupportedCipher(t *testing.T) {
	f := sampleFile()
	f.Flags = kdbtest.SHA2Flag | kdbtest.ArcFourFlag
	path := writeFile(t, f)
	r := run(t, "", "header", "-f", "json", path)
	require.NoError(t, r.err)
	var info headerInfo
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &info))
	assert.Equal(t, "unsupported", info.Cipher)
}

func TestHeader_NotKeePass(t *testing.T) {
	f := sampleFile()
	f.Version = 0x00020001
	path := writeFile(t, f)
	r := run(t, "", "header", path)
	assert.ErrorIs(t, r.err, keepass.ErrUnsupportedVersion)

	short := filepath.Join(t.TempDir(), "short.kdb")
	require.NoError(t, os.WriteFile(short, []byte("KeePass"), 0600))
	r = run(t, "", "header", short)
	assert.ErrorIs(t, r.err, keepass.ErrOutOfData)
}
