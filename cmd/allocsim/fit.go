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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cloudwego/allocx/allocator"
)

func newFitCmd(g *globalFlags) *cobra.Command {
	w := defaultWorkload()
	w.Arena = 256 << 10
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Compare the free list fit strategies",
		Long: `The fit command replays the same workload against a free list with each
fit strategy and compares failures and fragmentation.

Example:
  allocsim fit --ops 100000 --min 16 --max 4096
  allocsim fit --defrag --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var reports []*report
			for _, f := range []allocator.FitStrategy{allocator.FirstFit, allocator.BestFit, allocator.WorstFit} {
				fw := w
				fw.Allocator = "freelist"
				fw.Fit = f
				rep, err := runWorkload(fw)
				if err != nil {
					return fmt.Errorf("%s fit: %w", f, err)
				}
				reports = append(reports, rep)
			}
			if g.jsonOut {
				return printJSON(cmd.OutOrStdout(), reports)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FIT\tFAILED\tPEAK USED\tFREE BLOCKS\tLARGEST FREE\tFRAGMENTATION")
			for _, r := range reports {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%.2f%%\n",
					r.Fit, r.Failed, r.PeakUsed, r.FreeBlocks, r.LargestFreeBlock, 100*r.Fragmentation)
			}
			return tw.Flush()
		},
	}
	addWorkloadFlags(cmd, &w)
	return cmd
}
