// ABOUTME: Root cobra command and the shared wiring every subcommand uses.
// ABOUTME: Loads .env and YAML config, applies env overrides, and builds the logger, backend client, and journal.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/2389-research/listingdesk/backend"
	"github.com/2389-research/listingdesk/blog"
	"github.com/2389-research/listingdesk/config"
	"github.com/2389-research/listingdesk/journal"
	"github.com/2389-research/listingdesk/logging"
)

// app holds flags and the collaborators built from configuration.
type app struct {
	configPath string
	envFile    string
	logLevel   string

	cfg *config.Config
	log zerolog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{log: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   "listingdesk",
		Short: "Admin editor for rental-listing blog posts",
		Long: "listingdesk edits blog posts for the listing platform. Images are inserted at the cursor, " +
			"kept out of the text while editing, and embedded when the post is submitted.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		Example: `  listingdesk serve --addr 127.0.0.1:8080
  listingdesk post create --title "Harbour loft" --content-file body.html --image ./view.jpg
  listingdesk edit 42`,
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "listingdesk.yaml", "Path to the YAML config file")
	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Path to a .env file to load")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().SortFlags = false

	cmd.AddCommand(
		newServeCommand(a),
		newPostCommand(a),
		newEditCommand(a),
		newHistoryCommand(a),
		newVersionCommand(),
	)
	return cmd
}

// load reads configuration and builds the logger.
func (a *app) load(cmd *cobra.Command) error {
	if err := config.LoadEnv(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logging.New(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	config.SetLogger(a.log)
	return nil
}

// client builds the authenticated backend client.
func (a *app) client(log zerolog.Logger) (*backend.Client, error) {
	if err := a.cfg.RequireBackend(); err != nil {
		return nil, err
	}
	return backend.New(backend.Config{
		BaseURL:   a.cfg.Backend.URL,
		Token:     a.cfg.Backend.Token,
		Timeout:   a.cfg.Backend.Timeout,
		UserAgent: "listingdesk/" + version,
	}, backend.WithLogger(log))
}

// openJournal opens the submission journal, or returns nil when it is disabled.
func (a *app) openJournal() (*journal.Journal, error) {
	if !a.cfg.Journal.Enabled {
		return nil, nil
	}
	j, err := journal.Open(a.cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return j, nil
}

// submitter builds a Submitter for surface, recording to j when it is set.
func (a *app) submitter(p blog.Poster, j *journal.Journal, surface string, log zerolog.Logger) *blog.Submitter {
	opts := []blog.Option{
		blog.WithLogger(log),
		blog.WithWait(a.cfg.Server.SubmitWait),
		blog.WithSurface(surface),
	}
	if j != nil {
		opts = append(opts, blog.WithJournal(j))
	}
	return blog.NewSubmitter(p, opts...)
}

func closeJournal(j *journal.Journal, log zerolog.Logger) {
	if j == nil {
		return
	}
	if err := j.Close(); err != nil {
		log.Warn().Err(err).Msg("closing journal")
	}
}
