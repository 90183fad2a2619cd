package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rcliao/episode-forge/internal/pipeline"
	"github.com/spf13/cobra"
)

type renderFunc func(c *pipeline.Coordinator, ctx context.Context, id int) (*pipeline.Artifact, error)

func init() {
	audioCmd := &cobra.Command{
		Use:   "audio <id>",
		Short: "Render the soundtrack for a stored story",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runArtifact(cmd, args, "audio", (*pipeline.Coordinator).CreateAudio)
		},
	}
	videoCmd := &cobra.Command{
		Use:   "video <id>",
		Short: "Render the video for a stored story",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runArtifact(cmd, args, "video", (*pipeline.Coordinator).CreateVideo)
		},
	}

	for _, cmd := range []*cobra.Command{audioCmd, videoCmd} {
		cmd.Flags().StringP("output", "o", "", "Write the file here instead of the artifacts dir")
		RootCmd.AddCommand(cmd)
	}
}

func runArtifact(cmd *cobra.Command, args []string, kind string, render renderFunc) {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		exitErr("parse id", err)
	}
	output, _ := cmd.Flags().GetString("output")

	a := mustApp()
	defer a.Close()
	coord := a.mustCoordinator()

	art, err := render(coord, cmd.Context(), id)
	if err != nil {
		a.Close()
		exitErr("render "+kind, err)
	}

	if output != "" {
		if err := moveFile(art.Path, output); err != nil {
			a.Close()
			exitErr("write "+kind, err)
		}
		art.Path = output
	}

	printJSON(art)
}

// moveFile renames src to dst, copying when they sit on different devices.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy artifact: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return os.Remove(src)
}
