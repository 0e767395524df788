package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jan-sahayak/server/internal/agent/model"
)

var (
	chatThread   string
	chatLanguage string
	chatConverse bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant on one thread from the console",
	Long: `Reads one question per line and prints the answer. Commands:
  /clear  forget this thread
  /quit   exit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if chatThread == "" {
			chatThread = uuid.NewString()
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Thread %s. Type /quit to exit.\n", chatThread)

		var route model.Route
		if chatConverse {
			route = model.RouteConversation
		}

		sink := func(ev model.Event) {
			if ev.Type == model.EventLog {
				fmt.Fprintf(cmd.ErrOrStderr(), "  … %s\n", ev.Message)
			}
		}

		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			switch line {
			case "":
				continue
			case "/quit", "/exit":
				return nil
			case "/clear":
				if err := a.engine.Clear(ctx, chatThread); err != nil {
					fmt.Fprintf(out, "could not clear: %v\n", err)
				}
				continue
			}

			resp, err := a.engine.Handle(ctx, model.Request{
				InputText: line,
				Route:     route,
				ThreadID:  chatThread,
				Language:  chatLanguage,
			}, sink)
			if err != nil {
				fmt.Fprintln(out, model.GenericErrorMessage)
				continue
			}
			fmt.Fprintf(out, "\n%s\n\n[%s · %s]\n", resp.FinalText, resp.Route, resp.ReferenceID)
		}
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatThread, "thread", "", "thread id to continue (default: a new one)")
	chatCmd.Flags().StringVar(&chatLanguage, "lang", model.DefaultLanguage, "reply language code, e.g. hi")
	chatCmd.Flags().BoolVar(&chatConverse, "converse", false, "always use the conversation agent")
}
