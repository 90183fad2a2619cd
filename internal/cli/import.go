package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rcliao/episode-forge/internal/dedup"
	"github.com/rcliao/episode-forge/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import stories from JSON",
		Long:  "Import stories from stdin. Accepts the shape produced by export or a legacy bare list. Ids are kept; stories whose id already exists are skipped.",
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	snap, err := store.DecodeSnapshot(data)
	if err != nil {
		exitErr("parse json", err)
	}

	a := mustApp()
	defer a.Close()

	if len(snap.Skipped) > 0 {
		a.log.Warn("skipped unreadable entries", "keys", snap.Skipped)
	}
	if len(snap.Loose) > 0 {
		a.log.Warn("fields of an unexpected shape kept as raw values", "fields", snap.Loose)
	}
	if n := dedup.CountDuplicates(snap.Ordered()); n > 0 {
		a.log.Warn("imported data repeats earlier titles or plots", "duplicates", n)
	}

	imported, err := a.store.Restore(cmd.Context(), snap)
	if err != nil {
		a.Close()
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d,"skipped":%d}`+"\n", imported, len(snap.Stories)-imported)
}
