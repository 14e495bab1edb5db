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
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:   "kdbdump",
		Short: "Print the contents of a KeePass 1 database",
		Long: `kdbdump decrypts a KeePass 1.x (.kdb) database and prints its groups
and entries, or prints the unencrypted file header.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return bindConfig(v, cmd)
		},
	}
	root.PersistentFlags().String("config", "", "config file (default is kdbdump.yaml in . or $HOME/.kdbdump)")
	root.PersistentFlags().StringP("format", "f", "text", "output format (text, json)")
	root.PersistentFlags().BoolP("verbose", "v", false, "report key derivation progress on stderr")
	root.AddCommand(newTreeCmd(v), newHeaderCmd(v))
	return root
}
