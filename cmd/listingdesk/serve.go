// ABOUTME: serve command: runs the admin web editor until interrupted.
// ABOUTME: Wires the session store, image encoder, backend client, journal, and HTTP server.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389-research/listingdesk/editor"
	"github.com/2389-research/listingdesk/imaging"
	"github.com/2389-research/listingdesk/web"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web editor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			return runServe(cmd, a)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, a *app) error {
	client, err := a.client(a.log)
	if err != nil {
		return err
	}
	j, err := a.openJournal()
	if err != nil {
		return err
	}
	defer closeJournal(j, a.log)

	sessions := editor.NewStore(a.cfg.Server.MaxSessions, a.cfg.Server.SessionTTL, imaging.NewEncoder(a.cfg.ImagingOptions()))
	stop := sessions.StartCleanup(a.cfg.Server.CleanupInterval)
	defer stop()

	srvCfg := web.ServerConfig{
		Addr:           a.cfg.Server.Addr,
		MaxUploadBytes: a.cfg.Imaging.MaxBytes,
		Sessions:       sessions,
		Posts:          client,
		Submitter:      a.submitter(client, j, "web", a.log),
		Logger:         a.log,
	}
	if j != nil {
		srvCfg.History = j
	}
	srv, err := web.NewServer(srvCfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.log.Info().
		Str("backend", client.BaseURL()).
		Bool("journal", j != nil).
		Msg("starting web editor")
	return srv.ListenAndServe(ctx)
}
