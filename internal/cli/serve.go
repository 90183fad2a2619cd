package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rcliao/episode-forge/internal/server"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Run:   runServe,
	}

	cmd.Flags().StringP("addr", "a", "", "Listen address (overrides server.addr)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	a := mustApp()
	defer a.Close()
	coord := a.mustCoordinator()

	addr := a.cfg.Server.Addr
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		addr = v
	}
	if a.cfg.Log.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(server.RouterConfig{
		StoryHandler: server.NewStoryHandler(coord, a.cfg.Artifacts.Keep, a.log),
		Log:          a.log,
	})
	a.log.Info("listening", "addr", addr, "store", a.cfg.Store.Path, "backend", a.cfg.Store.Backend)
	if err := srv.Run(ctx, addr); err != nil {
		a.Close()
		exitErr("serve", err)
	}
	a.log.Info("server stopped")
}
