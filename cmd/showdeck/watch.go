package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vadimfor/showdeck/internal/daemon"
	"github.com/vadimfor/showdeck/internal/dashboard"
	"github.com/vadimfor/showdeck/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: "sync",
	Short:   "Import pages dropped into the inbox (foreground)",
	Long: `Watch the inbox directory and import saved pages as they arrive.

The daemon will:
  1. Import every page already in the inbox
  2. Import chart pages (*.html) as a whole catalog
  3. Import title pages named after their id (tt0903747.html) as show details
  4. Reload the chart from the site every daemon.refresh_interval, if set

With --dashboard the live dashboard is served alongside.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		withDashboard, _ := cmd.Flags().GetBool("dashboard")

		ctx, cancel := signalContext()
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.Close()

		if withDashboard {
			server := mustStartDashboard(a, cfg.Dashboard.Port)
			defer server.Stop()
		}

		d, err := daemon.NewWithConfig(a.coord, cfg.Daemon.Inbox, &daemon.Config{
			DebounceInterval: cfg.Daemon.Debounce.Std(),
			RefreshInterval:  cfg.Daemon.RefreshInterval.Std(),
			Logger:           logOut.Logger("daemon"),
		})
		if err != nil {
			a.Close()
			fatal("failed to create daemon: %v", err)
		}

		fmt.Printf("%s Watching inbox...\n", ui.RenderAccent("🚀"))
		fmt.Printf("   Inbox: %s\n", d.Inbox())
		fmt.Printf("   Cache: %s\n", a.db.Path())
		if cfg.Daemon.RefreshInterval > 0 {
			fmt.Printf("   Refresh: every %v\n", cfg.Daemon.RefreshInterval.Std())
		}
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Daemon stopped with error: %v\n", err)
			return
		}

		stats := d.Stats()
		fmt.Printf("\n%s Imported %d pages (%d failed), %d refreshes\n",
			ui.RenderPass("✓"), stats.Imported, stats.Failed, stats.Refreshes)
	},
}

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	GroupID: "sync",
	Short:   "Start the live dashboard",
	Long: `Start an HTTP and WebSocket server showing the cached catalog.

WebSocket messages include:
- shows_merged: shows added by a refresh, search or import
- show_patched: a show completed from its detail page
- membership_changed: a show added to or removed from favorites or saved
- sync_complete / sync_failed: a refresh or search finished
- stats: show, favorite and saved counts

JSON endpoints:
  /api/shows?sort=rank|release|title
  /api/shows/<id>
  /api/favorites
  /api/saved

Example usage:
  showdeck dashboard                 # Start on the configured port (8090)
  showdeck dashboard --port 9000     # Start on a custom port`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		port := cfg.Dashboard.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		ctx, cancel := signalContext()
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.Close()

		server := mustStartDashboard(a, port)

		fmt.Printf("Dashboard server started on http://%s\n", server.GetAddr())
		fmt.Printf("WebSocket endpoint: ws://%s/ws\n", server.GetAddr())
		fmt.Println("\nPress Ctrl+C to stop...")

		<-ctx.Done()

		fmt.Println("\nShutting down dashboard server...")
		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
		fmt.Println("Dashboard server stopped")
	},
}

// mustStartDashboard starts a dashboard over the app's view and subscribes it
// to the app's events.
func mustStartDashboard(a *app, port int) *dashboard.Server {
	server, err := dashboard.NewServer(&dashboard.Config{
		Port:   port,
		Source: a.view,
		Logger: logOut.Logger("dashboard"),
	})
	if err != nil {
		a.Close()
		fatal("%v", err)
	}
	if err := server.Start(); err != nil {
		a.Close()
		fatal("failed to start dashboard: %v", err)
	}
	a.events.Subscribe(server)
	return server
}

func init() {
	watchCmd.Flags().Bool("dashboard", false, "Also serve the live dashboard")
	dashboardCmd.Flags().IntP("port", "p", 8090, "Port to listen on")

	rootCmd.AddCommand(watchCmd, dashboardCmd)
}
