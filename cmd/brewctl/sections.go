package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/brewsync/internal/markup"
)

var (
	docTitle    string
	docRenderer string
	fullPreview bool
)

var sectionsCmd = &cobra.Command{
	Use:   "sections <file>",
	Short: "Print the sections a brew decomposes into",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(cmd, args[0], docRenderer, docTitle)
		if err != nil {
			return err
		}
		dec, err := markup.Decompose(doc)
		if err != nil {
			return err
		}
		log.Debug("decomposed", "sections", len(dec.Sections), "front_cover", dec.FrontCover != "")
		return printOutput(cmd, dec)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render a brew to HTML with hierarchical heading ids",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(cmd, args[0], docRenderer, docTitle)
		if err != nil {
			return err
		}
		if fullPreview {
			preview, err := markup.BuildPreview(doc)
			if err != nil {
				return err
			}
			return printOutput(cmd, preview)
		}
		r, err := markup.Render(doc.Text)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), r.HTML)
		return err
	},
}

func init() {
	for _, c := range []*cobra.Command{sectionsCmd, renderCmd} {
		c.Flags().StringVar(&docTitle, "title", "", "document title used for leading content")
		c.Flags().StringVar(&docRenderer, "renderer", "V3", "page break grammar: legacy or V3")
	}
	renderCmd.Flags().BoolVar(&fullPreview, "preview", false, "print sections, front cover and heading ids as structured output")
}
