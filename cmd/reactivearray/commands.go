// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"

	"github.com/AleutianAI/reactivearray/pkg/logging"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	logLevel   string
	logJSON    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "reactivearray",
		Short: "Observable arrays that broadcast every mutation as an operation",
		Long: `reactivearray plays operation scripts against an observable array and its
mirror, or serves named arrays over HTTP with a replay-then-live WebSocket
stream of their operations.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"config file (default ~/.reactivearray/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false,
		"write console logs as JSON")

	root.AddCommand(newPlayCmd(opts))
	root.AddCommand(newServeCmd(opts))
	return root
}

// consoleLogger builds a stderr logger from the persistent flags alone.
func (o *rootOptions) consoleLogger(cmd *cobra.Command, service string) (*logging.Logger, error) {
	level, err := logging.ParseLevel(o.logLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Config{
		Level:   level,
		JSON:    o.logJSON,
		Service: service,
		Output:  cmd.ErrOrStderr(),
	}), nil
}
