package cmd

import (
	"articlesearch-backend/services/articles"
	"articlesearch-backend/services/scraper/ptt"
	"articlesearch-backend/services/scraper/static"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var fetchFromFile string

func init() {
	fetchCmd.Flags().StringVarP(&fetchFromFile, "from-file", "f", "", "Read candidates from a json5 file instead of scraping.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Prints the candidates the provider currently yields without storing them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var provider articles.Provider
		if fetchFromFile != "" {
			p, err := static.LoadFile(fetchFromFile)
			if err != nil {
				return err
			}
			provider = p
		} else {
			p, err := ptt.New(cfg.Scraper, nil)
			if err != nil {
				return err
			}
			provider = p
		}

		candidates, err := provider.Fetch(cmd.Context())
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Title", "Author", "Valid", "Link"})
		for _, c := range candidates {
			valid := "yes"
			if err := c.Validate(); err != nil {
				valid = err.Error()
			}
			t.AppendRow(table.Row{c.Title, c.Author, valid, c.Link})
		}
		t.SetCaption("%d candidates", len(candidates))
		t.Render()
		return nil
	},
}
