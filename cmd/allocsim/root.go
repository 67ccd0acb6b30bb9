/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudwego/allocx/allocator"
)

// globalFlags are shared by every command.
type globalFlags struct {
	verbose bool
	jsonOut bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "allocsim",
		Short: "Replay allocation workloads against allocx allocators",
		Long: `allocsim runs a deterministic random workload of allocations,
reallocations and deallocations against one of the allocx allocators and
reports peak usage, failed requests and free list fragmentation.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.verbose {
				allocator.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(),
					&slog.HandlerOptions{Level: slog.LevelDebug})))
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			allocator.SetLogger(nil)
		},
	}
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log allocator lifecycle events to stderr")
	cmd.PersistentFlags().BoolVar(&g.jsonOut, "json", false, "Output in JSON format")

	cmd.AddCommand(newRunCmd(g), newFitCmd(g))
	return cmd
}

// printJSON outputs data as JSON
func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// createOutput opens path for writing, "-" being stdout.
func createOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
