package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vadimfor/showdeck/internal/backup"
	"github.com/vadimfor/showdeck/internal/config"
	"github.com/vadimfor/showdeck/internal/locale"
	"github.com/vadimfor/showdeck/internal/show"
	"github.com/vadimfor/showdeck/internal/ui"
	"github.com/vadimfor/showdeck/internal/view"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "maint",
	Short:   "Show cache status",
	Long: `Display the state of the local cache.

Shows:
  - Database location, size and last change
  - Number of cached shows, favorites and saved shows
  - Content language and inbox directory`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.Close()

		showCount, err := a.db.ShowCount(ctx)
		if err != nil {
			a.Close()
			fatal("failed to count shows: %v", err)
		}
		favCount, err := a.db.MembershipCount(ctx, show.Favorites)
		if err != nil {
			a.Close()
			fatal("failed to count favorites: %v", err)
		}
		savedCount, err := a.db.MembershipCount(ctx, show.Saved)
		if err != nil {
			a.Close()
			fatal("failed to count saved shows: %v", err)
		}

		fmt.Printf("\n%s Showdeck Status\n\n", ui.RenderAccent("📊"))
		fmt.Printf("Location: %s\n", a.db.Path())
		if info, err := os.Stat(a.db.Path()); err == nil {
			fmt.Printf("Size: %s\n", humanize.Bytes(uint64(info.Size())))
			fmt.Printf("Modified: %s\n", humanize.Time(info.ModTime()))
		}
		fmt.Printf("Shows: %d\n", showCount)
		fmt.Printf("Favorites: %d\n", favCount)
		fmt.Printf("Saved: %d\n", savedCount)
		fmt.Printf("Language: %s\n", a.coord.Language().Name())
		fmt.Printf("Inbox: %s\n", cfg.Daemon.Inbox)
		fmt.Println()
	},
}

var clearCmd = &cobra.Command{
	Use:     "clear",
	GroupID: "maint",
	Short:   "Delete every cached show, favorite and saved show",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		yes, _ := cmd.Flags().GetBool("yes")

		if !yes {
			if !ui.IsTerminal(os.Stdin) {
				fatal("refusing to clear without --yes")
			}
			confirmed := false
			err := huh.NewConfirm().
				Title("Delete the whole cache, including favorites and saved shows?").
				Affirmative("Delete").
				Negative("Cancel").
				Value(&confirmed).
				Run()
			if err != nil {
				fatal("%v", err)
			}
			if !confirmed {
				fmt.Println("Cancelled")
				return
			}
		}

		ctx, cancel := signalContext()
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.Close()

		if err := a.db.Clear(ctx); err != nil {
			a.Close()
			fatal("failed to clear cache: %v", err)
		}
		if err := a.view.Reload(ctx, a.db); err != nil {
			a.Close()
			fatal("failed to reload view: %v", err)
		}
		fmt.Printf("%s Cache cleared\n", ui.RenderPass("✓"))
	},
}

var exportCmd = &cobra.Command{
	Use:     "export",
	GroupID: "maint",
	Short:   "Export the cache as JSON or YAML",
	Long: `Export every cached show plus the favorites and saved lists.

Without --output the snapshot is printed to stdout in --format. With --output
the format follows the file extension (.json, .yaml or .yml).`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		formatFlag, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		format, err := backup.ParseFormat(formatFlag)
		if err != nil {
			fatal("%v", err)
		}

		ctx, cancel := signalContext()
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.Close()

		snap := &backup.Snapshot{
			Language:   string(a.coord.Language()),
			ExportedAt: time.Now().UTC(),
			Shows:      a.view.Sorted(view.SortRank),
			Favorites:  a.view.IDs(show.Favorites),
			Saved:      a.view.IDs(show.Saved),
		}

		if output == "" {
			if err := backup.Encode(os.Stdout, format, snap); err != nil {
				a.Close()
				fatal("%v", err)
			}
			return
		}

		if err := backup.WriteFile(output, snap); err != nil {
			a.Close()
			fatal("%v", err)
		}
		fmt.Printf("%s Exported %d shows to %s\n", ui.RenderPass("✓"), len(snap.Shows), output)
	},
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "maint",
	Short:   "Restore shows and memberships from an export",
	Long: `Restore a snapshot written by 'showdeck export'.

Shows are merged into the cache with full-row replace, then the favorites and
saved lists are re-added. Existing shows that are not in the snapshot are kept.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		snap, err := backup.ReadFile(args[0])
		if err != nil {
			fatal("%v", err)
		}

		ctx, cancel := signalContext()
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.Close()

		result, err := backup.Restore(ctx, a.db, snap, backup.RestoreOptions{DryRun: dryRun})
		if err != nil {
			a.Close()
			fatal("restore interrupted: %v", err)
		}

		verb := "Restored"
		if dryRun {
			verb = "Would restore"
		}
		fmt.Printf("%s %s %d shows and %d memberships\n", ui.RenderPass("✓"), verb, result.ShowsWritten, result.MembershipsAdded)
		for _, msg := range result.Errors {
			fmt.Printf("   %s %s\n", ui.RenderWarn("⚠"), msg)
		}
	},
}

var langCmd = &cobra.Command{
	Use:     "lang [en|es|ru]",
	GroupID: "maint",
	Short:   "Choose the content language",
	Long: `Choose the language titles and plots are requested in.

The choice is saved in the config file. Without an argument an interactive
picker is shown.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var choice string
		switch {
		case len(args) == 1:
			choice = args[0]
		case ui.IsTerminal(os.Stdin):
			choice = string(cfg.Lang())
			options := make([]huh.Option[string], 0, len(locale.All))
			for _, l := range locale.All {
				options = append(options, huh.NewOption(l.Name(), string(l)))
			}
			err := huh.NewSelect[string]().
				Title("Content language").
				Options(options...).
				Value(&choice).
				Run()
			if err != nil {
				fatal("%v", err)
			}
		default:
			fmt.Printf("Language: %s\n", cfg.Lang().Name())
			return
		}

		lang, ok := locale.Parse(choice)
		if !ok {
			fatal("unsupported language %q (want en, es or ru)", choice)
		}
		if err := config.SaveLanguage(cfgFile, lang); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s Language set to %s\n", ui.RenderPass("✓"), lang.Name())
		fmt.Println("Run 'showdeck refresh --force' to reload the chart in the new language.")
	},
}

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "maint",
	Short:   "Manage the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")

		if _, err := os.Stat(cfgFile); err == nil && !force {
			fatal("%s already exists (use --force to overwrite)", cfgFile)
		}
		if err := config.Write(cfgFile, config.Defaults()); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), cfgFile)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out, err := cfg.YAML()
		if err != nil {
			fatal("%v", err)
		}
		fmt.Printf("# %s\n%s", cfgFile, out)
	},
}

func init() {
	clearCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	exportCmd.Flags().String("format", "json", "Output format: json or yaml")
	exportCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	importCmd.Flags().Bool("dry-run", false, "Report what would be restored without writing")

	configInitCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)

	rootCmd.AddCommand(statusCmd, clearCmd, exportCmd, importCmd, langCmd, configCmd)
}
