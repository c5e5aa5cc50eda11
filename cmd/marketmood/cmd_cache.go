package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the news cache",
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop the cached news entry",
		Long:  "Removes the cached news payload; the next fetch is guaranteed to hit the feed.",
		RunE:  runCacheClear,
	}

	cmd.AddCommand(clearCmd)
	return cmd
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	d, err := buildDeps(cmd)
	if err != nil {
		return err
	}
	defer d.close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.news.ClearCache(ctx); err != nil {
		return err
	}
	log.Info().Msg("news cache cleared")
	return nil
}
