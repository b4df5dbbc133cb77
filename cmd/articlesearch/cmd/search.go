package cmd

import (
	"fmt"
	"strings"
	"time"

	"articlesearch-backend/services/articles"
	"articlesearch-backend/services/scraper/ptt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Searches articles by keyword, scraping and storing them if there are none yet.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dbs, err := openDatabases(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer dbs.Close()

		provider, err := ptt.New(cfg.Scraper, nil)
		if err != nil {
			return err
		}
		reconciler := articles.NewReconciler(dbs.articles, provider, articles.ReconcilerOptions{
			FetchTimeout: time.Duration(cfg.Search.FetchTimeout) * time.Second,
		})

		result, err := reconciler.Search(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"ID", "Title", "Author", "Count", "Link"})
		for _, a := range result.Articles {
			t.AppendRow(table.Row{a.ID, a.Title, a.Author, a.Count, a.Link})
		}
		if result.Cached {
			t.SetCaption("%d articles for %q (cached)", len(result.Articles), result.Keyword)
		} else {
			t.SetCaption(
				"%d articles for %q (inserted %d, incremented %d, skipped %d)",
				len(result.Articles),
				result.Keyword,
				result.Report.Inserted,
				result.Report.Incremented,
				result.Report.Skipped,
			)
		}
		t.Render()

		if len(result.Articles) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "The scrape did not yield anything for this keyword.")
		}
		return nil
	},
}
