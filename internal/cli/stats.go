package cli

import (
	"github.com/rcliao/episode-forge/internal/dedup"
	"github.com/rcliao/episode-forge/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	a := mustApp()
	defer a.Close()

	stats, err := a.store.Stats(cmd.Context())
	if err != nil {
		a.Close()
		exitErr("stats", err)
	}
	all, err := a.store.All(cmd.Context())
	if err != nil {
		a.Close()
		exitErr("stats", err)
	}

	printJSON(struct {
		Store      *store.Stats `json:"store"`
		Duplicates int          `json:"duplicates"`
	}{stats, dedup.CountDuplicates(all)})
}
