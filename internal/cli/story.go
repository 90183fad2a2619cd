package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// storyCmd groups the narrative commands.
var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "Create and read stories",
}

func init() {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Generate and store a story for an episode",
		Run:   runStoryCreate,
	}

	cmd.Flags().IntP("episode", "e", 0, "Episode number (required, >= 1)")
	cmd.Flags().StringP("theme", "t", "", "Optional theme for the episode")

	cmd.MarkFlagRequired("episode")

	storyCmd.AddCommand(cmd)
	RootCmd.AddCommand(storyCmd)
}

func runStoryCreate(cmd *cobra.Command, args []string) {
	episode, _ := cmd.Flags().GetInt("episode")
	theme, _ := cmd.Flags().GetString("theme")

	a := mustApp()
	defer a.Close()
	coord := a.mustCoordinator()

	res, err := coord.CreateNarrative(cmd.Context(), episode, theme)
	if err != nil {
		a.Close()
		exitErr("create story", err)
	}

	printJSON(res)
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
