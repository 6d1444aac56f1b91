package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kgchat"
	"kgchat/goldmark"
)

// rootContext cancels on SIGINT/SIGTERM so remote calls abort cleanly.
func rootContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

func newSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage chat sessions in the remote store",
	}
	cmd.AddCommand(newSessionsListCommand())
	cmd.AddCommand(newSessionsRenameCommand())
	cmd.AddCommand(newSessionsDeleteCommand())
	cmd.AddCommand(newSessionsExportCommand())
	return cmd
}

func newSessionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, log, err := newChat(false)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			sessions, err := c.Sessions(rootContext())
			if err != nil {
				return err
			}
			for _, s := range sessions {
				title := s.Title
				if title == "" {
					title = "(untitled)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d turns\t%s\n",
					s.ID, title, s.TurnCount, s.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newSessionsRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, log, err := newChat(false)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			return c.Rename(rootContext(), args[0], args[1])
		},
	}
}

func newSessionsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session and its turns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, log, err := newChat(false)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			return c.Delete(rootContext(), args[0])
		},
	}
}

func newSessionsExportCommand() *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a session transcript to stdout as plain text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, log, err := newChat(false)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			ctx := rootContext()
			if err := c.Switch(ctx, args[0]); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			session := c.Active()
			title := session.Title
			if title == "" {
				title = session.ID
			}
			fmt.Fprintf(out, "# %s\n\n", title)
			for _, turn := range c.Turns() {
				switch turn.Role {
				case kgchat.RoleUser:
					fmt.Fprintf(out, "> %s\n\n", turn.Content)
				case kgchat.RoleAssistant:
					fmt.Fprintf(out, "%s\n\n", goldmark.Plain(turn.Content, width))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "wrap width for answer text")
	return cmd
}
