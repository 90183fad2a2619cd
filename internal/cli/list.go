package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent stories",
		Run:   runList,
	}

	cmd.Flags().IntP("limit", "l", 10, "Max results")
	cmd.Flags().Bool("titles-only", false, "Only output id and title")

	storyCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	titlesOnly, _ := cmd.Flags().GetBool("titles-only")

	a := mustApp()
	defer a.Close()

	stories, err := a.store.Recent(cmd.Context(), limit)
	if err != nil {
		a.Close()
		exitErr("list", err)
	}

	if titlesOnly {
		for _, st := range stories {
			fmt.Printf("%d\t%s\n", st.ID, st.Title)
		}
		return
	}

	printJSON(stories)
}
