package cli

import (
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"gameworld/internal/broadcast"
	"gameworld/internal/devserver"
	"gameworld/internal/metrics"
	"gameworld/internal/wshub"
)

func newServeCmd() *cobra.Command {
	var (
		host     string
		port     int
		dir      string
		noReload bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the game pages and the points API",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&host, "host", devserver.DefaultHost, "interface to listen on")
	cmd.Flags().IntVar(&port, "port", devserver.DefaultPort, "port to listen on")
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to serve")
	cmd.Flags().BoolVar(&noReload, "no-reload", false, "disable live reload")

	cmd.RunE = withApp(func(cmd *cobra.Command, args []string, a *app) error {
		cfg := a.cfg
		if cmd.Flags().Changed("host") {
			cfg.Host = host
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = port
		}
		if cmd.Flags().Changed("dir") {
			cfg.StaticDir = dir
		}
		if noReload {
			cfg.LiveReload = false
		}

		b := broadcast.NewBroadcaster()
		defer b.Attach(a.bus)()
		m := metrics.New()
		defer m.Attach(a.bus)()

		ctx := cmd.Context()
		if auth, err := a.facade.RestoreSession(ctx); err != nil {
			a.log.Warn("could not restore session", "error", err)
		} else if auth.Signed() {
			a.log.Info("session restored", "user", auth.UserID())
		}

		srv := &devserver.Server{
			Ledger:      a.ledger,
			Facade:      a.facade,
			Hub:         wshub.NewHub(a.log),
			Broadcaster: b,
			Metrics:     m,
			StaticDir:   cfg.StaticDir,
			LiveReload:  cfg.LiveReload,
			Log:         a.log,
		}
		if a.db != nil {
			srv.DB = a.db
		}
		return srv.Run(ctx, net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	})
	return cmd
}
