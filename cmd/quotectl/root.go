package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotebook/internal/cli"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

type rootOptions struct {
	profilePath string
	serverURL   string
	asJSON      bool
	verbose     bool

	client *cli.Client
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "quotectl",
		Short:         "Browse and manage quotes on a quotebook server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.connect(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.profilePath, "profile", "", "profile file (default $XDG_CONFIG_HOME/quotebook/profile.toml)")
	cmd.PersistentFlags().StringVar(&opts.serverURL, "server", "", "server URL, overriding the profile")
	cmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print JSON instead of text")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log requests to stderr")

	cmd.AddCommand(
		newNextCmd(opts),
		newLastCmd(opts),
		newListCmd(opts),
		newAddCmd(opts),
		newCategoriesCmd(opts),
		newFilterCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newSyncCmd(opts),
		newStatusCmd(opts),
		newNotificationsCmd(opts),
		newTUICmd(opts),
	)

	return cmd
}

// connect loads the profile and builds the API client.
func (o *rootOptions) connect(stderr io.Writer) error {
	path := o.profilePath
	if path == "" {
		p, err := cli.DefaultProfilePath()
		if err != nil {
			return err
		}

		path = p
	}

	profile, err := cli.LoadProfile(path)
	if err != nil {
		return err
	}

	if o.serverURL != "" {
		profile.ServerURL = o.serverURL
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if o.verbose {
		logger = logging.NewWithWriter(&logging.Config{Level: "debug", Format: "pretty", Service: "quotectl"}, stderr)
	}

	o.client, err = cli.NewClient(profile, logger)

	return err
}

// print writes v as JSON with --json, otherwise runs text.
func (o *rootOptions) print(w io.Writer, v any, text func(io.Writer)) error {
	if o.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(v)
	}

	text(w)

	return nil
}

func readInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	return f, nil
}
