package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print a stored story",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	storyCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		exitErr("parse id", err)
	}

	a := mustApp()
	defer a.Close()

	st, err := a.store.Get(cmd.Context(), id)
	if err != nil {
		a.Close()
		exitErr("get", err)
	}

	printJSON(st)
}
