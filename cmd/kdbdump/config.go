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
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// config is the merged result of flags, environment, and config file.
type config struct {
	Format        string `mapstructure:"format"`
	Verbose       bool   `mapstructure:"verbose"`
	ShowMeta      bool   `mapstructure:"show-meta"`
	ShowPasswords bool   `mapstructure:"show-passwords"`
	KeyFile       string `mapstructure:"key-file"`
	Password      string `mapstructure:"password"`
	PasswordStdin bool   `mapstructure:"password-stdin"`
}

// bindConfig wires cmd's flags, KDBDUMP_* variables, and the config
// file into v.
func bindConfig(v *viper.Viper, cmd *cobra.Command) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("kdbdump")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.kdbdump")
	}
	v.SetEnvPrefix("KDBDUMP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// Only read through the environment or config file.
	if err := v.BindEnv("password"); err != nil {
		return err
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func loadConfig(v *viper.Viper) (*config, error) {
	cfg := new(config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	switch cfg.Format {
	case "text", "json":
	default:
		return nil, fmt.Errorf("unknown format %q (want text or json)", cfg.Format)
	}
	return cfg, nil
}
