package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/brewsync/internal/markup"
	"github.com/dgallion1/brewsync/internal/sourcebook"
)

var (
	pushShareID  string
	pushEditID   string
	pushToken    string
	pushURL      string
	pushInsecure bool
	pushDryRun   bool
)

var pushCmd = &cobra.Command{
	Use:   "push <file>",
	Short: "Decompose a brew and push it to the sourcebook service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(cmd, args[0], docRenderer, docTitle)
		if err != nil {
			return err
		}
		doc.ShareID = pushShareID
		doc.EditID = pushEditID
		doc.Published = true

		dec, err := markup.Decompose(doc)
		if err != nil {
			return err
		}
		if len(dec.Sections) == 0 {
			return fmt.Errorf("%s has no sections", args[0])
		}
		payload := sourcebook.NewPayload(doc, dec)
		if pushDryRun {
			return printOutput(cmd, payload)
		}

		token := pushToken
		if token == "" {
			token = os.Getenv("BREWSYNC_TOKEN")
		}
		if token == "" {
			return fmt.Errorf("a token is required (--token or BREWSYNC_TOKEN)")
		}

		base := pushURL
		if base == "" {
			base = cfg.SourcebookURL
		}
		insecure := cfg.SourcebookInsecureTLS
		if cmd.Flags().Changed("insecure") {
			insecure = pushInsecure
		}

		stats := sourcebook.NewStats(0)
		client := sourcebook.NewClient(base,
			sourcebook.WithInsecureTLS(insecure),
			sourcebook.WithTimeout(cfg.PushTimeout),
			sourcebook.WithStats(stats),
		)
		defer client.Close()

		log.Info("pushing", "share_id", doc.ShareID, "sections", len(dec.Sections), "url", base)
		res, err := client.Push(cmd.Context(), payload, token)
		if err != nil {
			return err
		}
		if !res.Success {
			log.Warn("sourcebook response has no success flag", "status", res.StatusCode)
		}
		return printOutput(cmd, map[string]any{
			"status":   res.StatusCode,
			"success":  res.Success,
			"response": res.Body,
			"took_ms":  stats.Snapshot().MaxMs,
		})
	},
}

func init() {
	pushCmd.Flags().StringVar(&pushShareID, "share-id", "", "share id of the brew")
	pushCmd.Flags().StringVar(&pushEditID, "edit-id", "", "edit id of the brew")
	pushCmd.Flags().StringVar(&pushToken, "token", "", "bearer token for the sourcebook service")
	pushCmd.Flags().StringVar(&pushURL, "url", "", "sourcebook service base URL (default SOURCEBOOK_URL)")
	pushCmd.Flags().BoolVar(&pushInsecure, "insecure", true, "skip TLS certificate verification")
	pushCmd.Flags().BoolVar(&pushDryRun, "dry-run", false, "print the payload instead of sending it")
	pushCmd.Flags().StringVar(&docTitle, "title", "", "brew title")
	pushCmd.Flags().StringVar(&docRenderer, "renderer", "V3", "page break grammar: legacy or V3")
	_ = pushCmd.MarkFlagRequired("share-id")
	_ = pushCmd.MarkFlagRequired("edit-id")
}
