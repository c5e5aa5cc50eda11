package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newNewsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "news",
		Short: "Fetch market news once and print it",
		Long: `Serves news through the cache: a fresh cache hit returns instantly with no
network call, otherwise the feed is fetched once and cached for 24 hours.
Feed failures degrade to built-in sample content.`,
		RunE: runNews,
	}
	cmd.Flags().Bool("json", false, "Force JSON output (default when stdout is not a terminal)")
	return cmd
}

func runNews(cmd *cobra.Command, args []string) error {
	d, err := buildDeps(cmd)
	if err != nil {
		return err
	}
	defer d.close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	items := d.news.Fetch(ctx)

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON || !stdoutIsTTY() {
		return json.NewEncoder(os.Stdout).Encode(items)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tCATEGORY\tSENTIMENT\tTITLE\tSOURCE")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			item.PublishedLabel, item.Category, item.Sentiment, item.Title, item.Source)
	}
	return w.Flush()
}
