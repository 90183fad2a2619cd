package cli

import (
	"strings"

	"github.com/rcliao/episode-forge/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search stories by keyword",
		Long:  "Search story titles and plot summaries for matching text, newest first.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().IntP("limit", "l", 20, "Max results")

	storyCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	a := mustApp()
	defer a.Close()

	results, err := a.store.Search(cmd.Context(), store.SearchParams{
		Query: query,
		Limit: limit,
	})
	if err != nil {
		a.Close()
		exitErr("search", err)
	}

	printJSON(results)
}
