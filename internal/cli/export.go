package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the store as JSON",
		Long:  `Export every story in the canonical {"stories": {...}, "current_id": N} shape, readable by import.`,
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	a := mustApp()
	defer a.Close()

	snap, err := a.store.Snapshot(cmd.Context())
	if err != nil {
		a.Close()
		exitErr("export", err)
	}

	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		a.Close()
		exitErr("encode", err)
	}
	fmt.Println(string(b))
}
