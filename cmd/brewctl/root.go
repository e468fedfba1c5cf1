package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/brewsync/internal/brew"
	"github.com/dgallion1/brewsync/internal/config"
)

var version = "dev"

var (
	outputFormat string
	verbose      bool

	cfg config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "brewctl",
	Short: "Inspect, render and push brews",
	Long: `brewctl works with brew documents outside the sync service.

It can split a brew into the sections the service would push, render it
with hierarchical heading ids, push it to the sourcebook service directly,
and call cookie-authenticated backends with automatic session refresh.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "log debug output to stderr",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if outputFormat != "yaml" && outputFormat != "json" {
			return fmt.Errorf("unknown output format %q", outputFormat)
		}
		cfg = config.Load()
		level := cfg.SlogLevel()
		if verbose {
			level = slog.LevelDebug
		}
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return nil
	}

	rootCmd.AddCommand(sectionsCmd, renderCmd, pushCmd, callCmd)
}

// printOutput writes v to the command's stdout in the selected format.
func printOutput(cmd *cobra.Command, v any) error {
	w := cmd.OutOrStdout()
	if outputFormat == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

// readDocument loads a brew from path, or stdin for "-".
func readDocument(cmd *cobra.Command, path string, mode string, title string) (brew.Document, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return brew.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return brew.Document{
		Text:     string(data),
		Title:    title,
		Renderer: brew.Mode(mode),
	}, nil
}
