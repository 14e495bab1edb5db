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
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"zombiezen.com/go/kdbview/pkg/keepass"
)

func newHeaderCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "header FILE",
		Short: "Print a database's unencrypted header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return runHeader(cmd.OutOrStdout(), cfg, args[0])
		},
	}
}

type headerInfo struct {
	Flags           string `json:"flags"`
	Version         string `json:"version"`
	Cipher          string `json:"cipher"`
	NumGroups       uint32 `json:"groups"`
	NumEntries      uint32 `json:"entries"`
	TransformRounds uint32 `json:"transformRounds"`
	MasterSeed      string `json:"masterSeed"`
	TransformSeed   string `json:"transformSeed"`
	IV              string `json:"iv"`
	ContentHash     string `json:"contentHash"`
}

func newHeaderInfo(h *keepass.Header) *headerInfo {
	info := &headerInfo{
		Flags:           h.Flags.String(),
		Version:         fmt.Sprintf("0x%08x", h.Version),
		NumGroups:       h.NumGroups,
		NumEntries:      h.NumEntries,
		TransformRounds: h.TransformRounds,
		MasterSeed:      hex.EncodeToString(h.MasterSeed[:]),
		TransformSeed:   hex.EncodeToString(h.TransformSeed[:]),
		IV:              hex.EncodeToString(h.IV[:]),
		ContentHash:     hex.EncodeToString(h.ContentHash[:]),
	}
	if c, err := h.Cipher(); err != nil {
		info.Cipher = "unsupported"
	} else {
		info.Cipher = c.String()
	}
	return info
}

func runHeader(w io.Writer, cfg *config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	h, err := keepass.ReadHeader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	info := newHeaderInfo(h)
	if cfg.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	fmt.Fprintf(tw, "flags:\t%s\n", info.Flags)
	fmt.Fprintf(tw, "version:\t%s\n", info.Version)
	fmt.Fprintf(tw, "cipher:\t%s\n", info.Cipher)
	fmt.Fprintf(tw, "groups:\t%d\n", info.NumGroups)
	fmt.Fprintf(tw, "entries:\t%d\n", info.NumEntries)
	fmt.Fprintf(tw, "transform rounds:\t%d\n", info.TransformRounds)
	fmt.Fprintf(tw, "master seed:\t%s\n", info.MasterSeed)
	fmt.Fprintf(tw, "transform seed:\t%s\n", info.TransformSeed)
	fmt.Fprintf(tw, "iv:\t%s\n", info.IV)
	fmt.Fprintf(tw, "content hash:\t%s\n", info.ContentHash)
	return tw.Flush()
}
