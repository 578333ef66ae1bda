package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vadimfor/showdeck/internal/loadtest"
	"github.com/vadimfor/showdeck/internal/ui"
)

var benchCmd = &cobra.Command{
	Use:     "bench",
	GroupID: "maint",
	Short:   "Measure cache performance under concurrent load",
	Long: `Measure how the cache behaves when many clients reload at once.

A scratch database (never your own cache) is filled with the given number of
shows and memberships. Then --readers goroutines each perform --queries full
reloads (catalog plus favorites and saved ids) while latency is recorded.

With --race the reloads also run against concurrent membership writers for the
given duration, checking that no reload sees inconsistent data.

Examples:
  showdeck bench
  showdeck bench --readers 50 --shows 1000
  showdeck bench --race 5s --json`,
	Args: cobra.NoArgs,
	Run:  runBench,
}

func init() {
	benchCmd.Flags().Int("readers", 20, "Number of concurrent readers to simulate")
	benchCmd.Flags().Int("shows", 250, "Number of shows in the scratch database")
	benchCmd.Flags().Int("queries", 10, "Number of reloads per reader")
	benchCmd.Flags().Float64("members", 0.3, "Fraction of shows marked favorite (0.0-1.0)")
	benchCmd.Flags().Duration("race", 0, "Also run readers against writers for this long")
	benchCmd.Flags().Bool("json", false, "Output results as JSON")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) {
	readers, _ := cmd.Flags().GetInt("readers")
	shows, _ := cmd.Flags().GetInt("shows")
	queries, _ := cmd.Flags().GetInt("queries")
	members, _ := cmd.Flags().GetFloat64("members")
	race, _ := cmd.Flags().GetDuration("race")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if readers <= 0 {
		fatal("--readers must be positive")
	}
	if shows <= 0 {
		fatal("--shows must be positive")
	}
	if queries <= 0 {
		fatal("--queries must be positive")
	}
	if members < 0 || members > 1 {
		fatal("--members must be between 0.0 and 1.0")
	}

	dir, err := os.MkdirTemp("", "showdeck-bench-")
	if err != nil {
		fatal("%v", err)
	}
	defer os.RemoveAll(dir)

	if !jsonOutput {
		fmt.Println("Running cache benchmark...")
		fmt.Printf("Configuration: %d readers, %d shows, %d reloads/reader, %.0f%% favorites\n\n",
			readers, shows, queries, members*100)
	}

	setupStart := time.Now()
	td, err := loadtest.CreateTestDatabase(filepath.Join(dir, "bench.db"), shows, members)
	if err != nil {
		fatal("%v", err)
	}
	defer td.Close()
	setup := time.Since(setupStart)

	start := time.Now()
	stats, err := td.RunConcurrentQueries(readers, queries)
	if err != nil {
		td.Close()
		fatal("%v", err)
	}
	total := time.Since(start)
	qps := float64(stats.TotalQueries) / total.Seconds()

	var raceErr error
	if race > 0 {
		raceErr = td.VerifyNoRaceConditions(readers, race)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"config": map[string]interface{}{
				"readers": readers,
				"shows":   shows,
				"queries": queries,
				"members": members,
			},
			"database": td.GetStats(),
			"latency": map[string]interface{}{
				"min_ms":  stats.Min.Milliseconds(),
				"p50_ms":  stats.P50.Milliseconds(),
				"mean_ms": stats.Mean.Milliseconds(),
				"p95_ms":  stats.P95.Milliseconds(),
				"p99_ms":  stats.P99.Milliseconds(),
				"max_ms":  stats.Max.Milliseconds(),
			},
			"throughput": map[string]interface{}{
				"qps":     qps,
				"queries": stats.TotalQueries,
			},
			"setup_ms":    setup.Milliseconds(),
			"duration_ms": total.Milliseconds(),
			"errors":      stats.Errors,
		}
		if race > 0 {
			output["race_ok"] = raceErr == nil
			if raceErr != nil {
				output["race_error"] = raceErr.Error()
			}
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(output); err != nil {
			td.Close()
			fatal("failed to encode JSON: %v", err)
		}
	} else {
		fmt.Printf("Setup: %v\n", setup.Round(time.Millisecond))
		stats.PrintStats()
		fmt.Printf("  Throughput:    %.2f reloads/second\n", qps)
		if race > 0 {
			if raceErr != nil {
				fmt.Printf("\n%s Consistency check failed: %v\n", ui.RenderFail("✗"), raceErr)
			} else {
				fmt.Printf("\n%s No inconsistent reads in %v\n", ui.RenderPass("✓"), race)
			}
		}
	}

	if stats.Errors > 0 || raceErr != nil {
		td.Close()
		os.Exit(1)
	}
}
