package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/goldmafia/clubhouse/internal/config"
	"github.com/goldmafia/clubhouse/internal/pinning"
)

// app is the state shared by every subcommand
type app struct {
	cfg    *config.Config
	client *pinning.Client
}

type appLoader func(verbose bool) (*app, error)

func loadApp(verbose bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, verbose), nil
}

func newApp(cfg *config.Config, verbose bool) *app {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return &app{
		cfg: cfg,
		client: pinning.NewClient(cfg.Pinning(),
			pinning.WithHTTPClient(&http.Client{Timeout: cfg.PinataTimeout}),
			pinning.WithLogger(logger),
		),
	}
}

func newRootCmd(load appLoader) *cobra.Command {
	var (
		verbose bool
		a       *app
	)

	root := &cobra.Command{
		Use:           "pinctl",
		Short:         "Pin content to IPFS through Pinata",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = load(verbose)
			return err
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log gateway requests")

	current := func() *app { return a }
	root.AddCommand(
		newFileCmd(current),
		newJSONCmd(current),
		newAvatarCmd(current),
		newDealDocCmd(current),
		newChatCmd(current),
		newNFTCmd(current),
		newURLCmd(current),
		newTokenCmd(current),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
