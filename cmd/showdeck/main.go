// Command showdeck browses a ranked catalog of TV series from the terminal and
// keeps favorites and a watch-later list in a local SQLite cache.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vadimfor/showdeck/internal/config"
	"github.com/vadimfor/showdeck/internal/logging"
	"github.com/vadimfor/showdeck/internal/ui"
)

var (
	cfgFile string
	verbose bool

	v      *viper.Viper
	cfg    config.Config
	logOut *logging.Output
)

var rootCmd = &cobra.Command{
	Use:   "showdeck",
	Short: "Browse popular TV series and keep favorites offline",
	Long: `showdeck loads the popular TV series chart, searches for series, and keeps
favorites and a saved-for-later list in a local SQLite cache.

The catalog is fetched once and then served from the cache. Use 'refresh --force'
to reload it, or drop saved pages into the inbox and run 'watch'.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logOut != nil {
			_ = logOut.Close()
		}
	},
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle: setup reads rootCmd's persistent flags.
	rootCmd.PersistentPreRunE = setup

	rootCmd.AddGroup(
		&cobra.Group{ID: "catalog", Title: "Catalog:"},
		&cobra.Group{ID: "collections", Title: "Favorites and saved:"},
		&cobra.Group{ID: "sync", Title: "Background sync:"},
		&cobra.Group{ID: "maint", Title: "Maintenance:"},
	)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().String("db", "", "Database path (overrides database.path)")
	rootCmd.PersistentFlags().String("lang", "", "Content language: en, es or ru (overrides language)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")
}

// setup loads configuration and logging before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	ui.ConfigureColors()

	if cfgFile == "" {
		cfgFile = config.DefaultPath()
	}

	v = config.NewViper()
	flags := rootCmd.PersistentFlags()
	if err := v.BindPFlag("database.path", flags.Lookup("db")); err != nil {
		return err
	}
	if err := v.BindPFlag("language", flags.Lookup("lang")); err != nil {
		return err
	}

	loaded, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	logOut, err = logging.New(logging.Options{
		Verbose:    verbose,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	return nil
}

// fatal prints an error the way every command reports failure and exits.
func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
