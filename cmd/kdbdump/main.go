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

// kdbdump prints the contents of a KeePass 1 database.
//
//	kdbdump tree [--format text|json] [--show-meta] [--show-passwords] FILE
//	kdbdump header [--format text|json] FILE
//
// The password comes from --password-stdin, the KDBDUMP_PASSWORD
// environment variable, the config file, or a terminal prompt, in that
// order.  Flags may also be set in kdbdump.yaml (searched for in the
// working directory and $HOME/.kdbdump) or as KDBDUMP_* variables.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "kdbdump: %v\n", err)
		os.Exit(1)
	}
}
