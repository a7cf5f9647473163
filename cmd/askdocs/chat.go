package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/xhad/askdocs/pkg/config"
	"github.com/xhad/askdocs/pkg/qa"
)

func newChatCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath, (*config.Config).Validate)
			if err != nil {
				return err
			}
			defer a.Close()

			return runChat(cmd.Context(), a.answerer(), a.cfg.Server.Streaming)
		},
	}
}

func runChat(ctx context.Context, answerer *qa.Service, streaming bool) error {
	color.Cyan("\nChat with your knowledge base (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()
	sourcePrompt := color.New(color.FgHiBlack).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if strings.ToLower(question) == "exit" {
			break
		}

		var invalid *qa.InvalidInputError
		if streaming {
			fmt.Print("\n")
			assistantPrompt("Assistant: ")
			answer, err := answerer.AskStream(ctx, question, func(chunk string) error {
				assistantPrompt("%s", chunk)
				return nil
			})
			fmt.Print("\n")
			if errors.As(err, &invalid) {
				color.Yellow("%s\n", invalid.Message)
				continue
			}
			if err != nil {
				color.Red("Error: %v\n", err)
				continue
			}
			sourcePrompt("\nSource: %s\n", answer.Source)
			continue
		}

		spinner := getSpinner("🤖 Generating response...")
		answer, err := answerer.Ask(ctx, question)
		_ = spinner.Finish()
		fmt.Print("\r")

		if errors.As(err, &invalid) {
			color.Yellow("%s\n", invalid.Message)
			continue
		}
		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}
		assistantPrompt("Assistant: %s\n", answer.Text)
		sourcePrompt("\nSource: %s\n", answer.Source)
	}

	return scanner.Err()
}
