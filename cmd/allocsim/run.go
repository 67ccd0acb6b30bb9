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
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudwego/allocx/allocator"
)

// addWorkloadFlags binds the flags describing a workload.
func addWorkloadFlags(cmd *cobra.Command, w *workload) {
	cmd.Flags().IntVar(&w.Arena, "arena", w.Arena, "Arena size in bytes")
	cmd.Flags().IntVar(&w.Ops, "ops", w.Ops, "Number of operations")
	cmd.Flags().IntVar(&w.Min, "min", w.Min, "Smallest allocation in bytes")
	cmd.Flags().IntVar(&w.Max, "max", w.Max, "Largest allocation in bytes")
	cmd.Flags().Int64Var(&w.Seed, "seed", w.Seed, "Random seed")
	cmd.Flags().BoolVar(&w.Defrag, "defrag", w.Defrag, "Defragment the free list on every deallocation")
	cmd.Flags().BoolVar(&w.Mmap, "mmap", w.Mmap, "Take the arena from an anonymous memory mapping")
}

func parseFit(s string) (allocator.FitStrategy, error) {
	for _, f := range []allocator.FitStrategy{allocator.BestFit, allocator.FirstFit, allocator.WorstFit} {
		if strings.EqualFold(s, f.String()) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown fit strategy %q, want first, best or worst", s)
}

func newRunCmd(g *globalFlags) *cobra.Command {
	w := defaultWorkload()
	var (
		fit     string
		csvPath string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a random workload against one allocator",
		Long: `The run command replays a random workload against one allocator and
prints its statistics. With --record every event goes through a recorder whose
digest identifies the run; --csv writes the events as CSV.

Example:
  allocsim run --allocator freelist --fit first --ops 50000
  allocsim run --allocator stack --arena 65536 --json
  allocsim run --record --csv events.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if w.Fit, err = parseFit(fit); err != nil {
				return err
			}
			if csvPath != "" {
				out, closeOut, err := createOutput(cmd, csvPath)
				if err != nil {
					return err
				}
				defer func() { _ = closeOut() }()
				w.Record = true
				w.CSV = out
			}
			rep, err := runWorkload(w)
			if err != nil {
				return err
			}
			if g.jsonOut {
				return printJSON(cmd.OutOrStdout(), rep)
			}
			printReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	cmd.Flags().StringVar(&w.Allocator, "allocator", w.Allocator,
		"Allocator to exercise: "+strings.Join(allocatorKinds, ", "))
	cmd.Flags().StringVar(&fit, "fit", allocator.BestFit.String(), "Free list fit strategy: first, best or worst")
	cmd.Flags().BoolVar(&w.Record, "record", false, "Record every event and print the trace digest")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write the recorded events as CSV to this file, - for stdout")
	addWorkloadFlags(cmd, &w)
	return cmd
}

func printReport(out io.Writer, r *report) {
	fmt.Fprintf(out, "Allocator:       %s\n", r.Allocator)
	if r.Fit != "" {
		fmt.Fprintf(out, "Fit strategy:    %s\n", r.Fit)
	}
	fmt.Fprintf(out, "Buffer size:     %d\n", r.Size)
	fmt.Fprintf(out, "Operations:      %d (%d allocations, %d deallocations, %d reallocations)\n",
		r.Ops, r.Allocations, r.Deallocations, r.Reallocations)
	if r.Clears > 0 {
		fmt.Fprintf(out, "Clears:          %d\n", r.Clears)
	}
	fmt.Fprintf(out, "Failed requests: %d\n", r.Failed)
	fmt.Fprintf(out, "Peak usage:      %d bytes, %d live allocations\n", r.PeakUsed, r.PeakLive)
	fmt.Fprintf(out, "Recent usage:    avg %d, max %d bytes\n", r.RecentAvgUsed, r.RecentMaxUsed)
	if r.FreeBlocks > 0 {
		fmt.Fprintf(out, "Free blocks:     %d, largest %d bytes, fragmentation %.2f%%\n",
			r.FreeBlocks, r.LargestFreeBlock, 100*r.Fragmentation)
	}
	fmt.Fprintf(out, "Final usage:     %d bytes in %d allocations\n", r.FinalUsed, r.FinalAllocations)
	fmt.Fprintf(out, "Bookkeeping:     %d bytes peak\n", r.BookkeepingPeak)
	if r.Digest != "" {
		fmt.Fprintf(out, "Events:          %d, digest %s\n", r.Events, r.Digest)
	}
}
