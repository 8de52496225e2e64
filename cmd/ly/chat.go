package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/models"
	"github.com/zulandar/leadyard/internal/notify"
	"github.com/zulandar/leadyard/internal/web"
	"golang.org/x/term"
)

const chatGreeting = "Hi! I'm your real estate assistant. What kind of property are you looking for?"

func newChatCmd() *cobra.Command {
	var (
		configPath string
		email      string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant as a registered buyer",
		Long:  "Reads buyer messages from stdin, one per line, until the conversation is completed or input ends.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, configPath, email)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Leadyard config file")
	cmd.Flags().StringVar(&email, "email", "", "registered buyer email (required)")
	cmd.MarkFlagRequired("email")
	return cmd
}

func runChat(cmd *cobra.Command, configPath, email string) error {
	cfg, store, closeDB, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer closeDB()

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	l, err := store.FindByEmail(ctx, email)
	if errors.Is(err, lead.ErrNotFound) {
		return fmt.Errorf("no buyer registered with %s (use 'ly lead register')", email)
	}
	if err != nil {
		return err
	}

	notifier, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		return err
	}
	engine, err := newController(ctx, cfg, store, notifier, log)
	if err != nil {
		return err
	}
	return chatLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), engine, l)
}

// chatLoop feeds each non-blank input line to engine until the lead is
// sealed or in is exhausted.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, engine web.Engine, l *models.Lead) error {
	if l.ChatCompleted {
		fmt.Fprintln(out, "This conversation is already complete. An agent will contact you shortly.")
		return nil
	}

	interactive := isTerminal(in)
	if n := len(l.Conversation); n > 0 && l.Conversation[n-1].Role == models.RoleAssistant {
		fmt.Fprintf(out, "Assistant: %s\n", l.Conversation[n-1].Text)
	} else {
		fmt.Fprintf(out, "Assistant: %s\n", chatGreeting)
	}

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, "You: ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		before := len(l.Conversation)
		updated, err := engine.ProcessTurn(ctx, l.ID, text)
		if err != nil {
			return err
		}
		for _, m := range updated.Conversation[min(before, len(updated.Conversation)):] {
			if m.Role == models.RoleAssistant {
				fmt.Fprintf(out, "Assistant: %s\n", m.Text)
			}
		}
		l = updated
		if l.ChatCompleted {
			return nil
		}
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
