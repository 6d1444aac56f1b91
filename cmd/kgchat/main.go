// Command kgchat is the terminal client for the knowledge-graph chat
// assistant. Run without arguments it opens the TUI; the sessions
// subcommands manage the remote session registry headlessly.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kgchat"
	"kgchat/api"
	"kgchat/bubbletea"
	"kgchat/chat"
	"kgchat/config"
	"kgchat/logger"
)

func main() {
	if err := buildRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "kgchat",
		Short:         "Chat with a knowledge-graph-backed assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(newSessionsCommand())
	return root
}

// newChat wires the orchestrator. The TUI must not share the terminal
// with log output, so tui selects the file-only logger.
func newChat(tui bool) (*chat.Chat, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	var log *zap.Logger
	if tui {
		log = logger.NewFileOnly(cfg.LogFile, cfg.Debug)
	} else {
		log = logger.New(cfg.LogFile, cfg.Debug)
	}

	client := api.New(
		api.WithBaseURL(cfg.BaseURL),
		api.WithMaxRows(cfg.MaxRows),
		api.WithLogger(log),
	)
	c := chat.New(client, client, client, client,
		chat.WithLogger(log),
		chat.WithIdleWarning(cfg.IdleWarn),
		chat.WithStreamCeiling(cfg.StreamCeiling),
		chat.WithRetrievalK(cfg.RetrievalK),
	)
	return c, log, nil
}

func runTUI() error {
	c, log, err := newChat(true)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	if err := c.Start(rootContext()); err != nil {
		return err
	}
	return bubbletea.Run(bubbletea.New(c, kgchat.DefaultTheme()))
}
