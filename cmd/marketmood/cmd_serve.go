package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/marketmood/marketmood/internal/api"
	httpsurface "github.com/marketmood/marketmood/internal/interfaces/http"
	"github.com/marketmood/marketmood/internal/realtime"
	"github.com/marketmood/marketmood/internal/widgets"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the client core as a daemon",
		Long: `Starts the local HTTP surface (/health, /metrics, /news), connects the
realtime transport, and optionally mounts an asset view whose poll and
comment widgets refresh on server push with a polling backstop.`,
		RunE: runServe,
	}
	cmd.Flags().String("symbol", "", "Asset symbol to mount a live view for (e.g. BTC)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := buildDeps(cmd)
	if err != nil {
		return err
	}
	defer d.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Shared transport, one per process. A connect failure is liveness-only:
	// widgets still refresh on their polling backstop.
	wsConfig := realtime.DefaultWSConfig(d.config.Realtime.URL)
	wsConfig.PingInterval = d.config.PingInterval()
	transport := realtime.NewWSTransport(wsConfig, d.metrics)
	if err := transport.Connect(ctx); err != nil {
		log.Warn().Err(err).Msg("realtime unavailable, widgets fall back to polling")
	} else {
		defer transport.Close()
	}

	if symbol, _ := cmd.Flags().GetString("symbol"); symbol != "" {
		if err := mountAssetView(ctx, d, transport, symbol); err != nil {
			return err
		}
	}

	server, err := httpsurface.NewServer(httpsurface.DefaultServerConfig(), d.news, d.metrics)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// mountAssetView joins the asset's room and starts the three widgets the
// dashboard shows per asset: sentiment poll, intent poll, comment thread.
func mountAssetView(ctx context.Context, d *deps, transport realtime.Transport, symbol string) error {
	view := realtime.NewAssetSync(transport, d.metrics)
	if err := view.Join(ctx, symbol); err != nil {
		return err
	}

	client := api.NewClient(api.ClientConfig{
		BaseURL:        d.config.API.BaseURL,
		RequestTimeout: d.config.APITimeout(),
		RatePerSecond:  d.config.API.RatePerSecond,
		Burst:          d.config.API.Burst,
	}, tokenSource(d), nil)

	sentiment := widgets.NewPollWidget(client, symbol, api.PollSentiment)
	intent := widgets.NewPollWidget(client, symbol, api.PollIntent)
	comments := widgets.NewCommentsWidget(client, symbol)

	for _, w := range []interface {
		SetInterval(time.Duration)
		Bind(*realtime.AssetSync)
	}{sentiment, intent, comments} {
		w.SetInterval(d.config.PollInterval())
		w.Bind(view)
	}

	go sentiment.Run(ctx)
	go intent.Run(ctx)
	go comments.Run(ctx)

	go func() {
		<-ctx.Done()
		view.Close(context.Background())
	}()

	log.Info().Str("symbol", realtime.NormalizeSymbol(symbol)).Msg("asset view mounted")
	return nil
}

func tokenSource(d *deps) api.TokenSource {
	if ts, ok := d.local.(api.TokenSource); ok {
		return ts
	}
	return nil
}
