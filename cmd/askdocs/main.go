package main

import (
	"log"

	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "askdocs",
		Short:         "Answer questions about a set of scraped web pages",
		Long:          "Scrape pages into a vector index, then answer questions about them over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	rootCmd.AddCommand(
		newIngestCmd(&configPath),
		newServeCmd(&configPath),
		newChatCmd(&configPath),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
