package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vadimfor/showdeck/internal/show"
	"github.com/vadimfor/showdeck/internal/ui"
)

// toggleCommand builds the fav and save commands.
func toggleCommand(use, short string, c show.Collection) *cobra.Command {
	return &cobra.Command{
		Use:     use + " <id...>",
		GroupID: "collections",
		Short:   short,
		Long: short + `.

Running the command again on the same show removes it. The change shows up
immediately and is saved in the background before the command exits.`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := signalContext()
			defer cancel()

			a := mustOpenApp(ctx)
			defer a.Close()

			for _, id := range args {
				sh, ok := a.view.Get(id)
				if !ok {
					fmt.Printf("%s %s is not cached, skipping\n", ui.RenderWarn("⚠"), id)
					continue
				}

				if a.members.Toggle(c, sh) {
					fmt.Printf("%s Added %s to %s\n", ui.RenderPass("✓"), ui.RenderBold(sh.Title), c)
				} else {
					fmt.Printf("%s Removed %s from %s\n", ui.RenderMuted("✗"), ui.RenderBold(sh.Title), c)
				}
			}
		},
	}
}

// membersCommand builds the favorites and saved listings.
func membersCommand(c show.Collection, short string) *cobra.Command {
	return &cobra.Command{
		Use:     string(c),
		GroupID: "collections",
		Short:   short,
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := signalContext()
			defer cancel()

			a := mustOpenApp(ctx)
			defer a.Close()

			shows := a.view.Members(c)
			if len(shows) == 0 {
				fmt.Printf("\nNo %s yet.\n\n", c)
				return
			}

			fmt.Printf("\n%s %s (%d)\n\n", ui.RenderAccent("★"), ui.RenderTitle(string(c)), len(shows))
			printShows(a.view, shows)
		},
	}
}

func init() {
	rootCmd.AddCommand(
		toggleCommand("fav", "Add a show to favorites, or remove it", show.Favorites),
		toggleCommand("save", "Save a show for later, or unsave it", show.Saved),
		membersCommand(show.Favorites, "List favorite shows"),
		membersCommand(show.Saved, "List shows saved for later"),
	)
}
