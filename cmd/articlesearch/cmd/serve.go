package cmd

import (
	"net/http"
	"time"

	"articlesearch-backend/lib/serviceutil"
	"articlesearch-backend/lib/telemetry"
	"articlesearch-backend/services/accounts"
	"articlesearch-backend/services/api"
	"articlesearch-backend/services/articles"
	"articlesearch-backend/services/scraper/ptt"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"
)

var servePort int

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on, overrides server.port.")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the search and account procedures over http.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := serviceutil.SignalContext()
		telemetry.InstrumentPerfStats(ctx)

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

		otelInterceptor, err := serviceutil.NewConnectOtelInterceptor()
		if err != nil {
			return err
		}
		interceptors := connect.WithInterceptors(
			otelInterceptor,
			serviceutil.VerifyAccessTokenInterceptor(cfg.Server.AccessToken),
		)

		mux := http.NewServeMux()
		mux.Handle(api.NewSearchServiceHandler(
			api.NewSearchService(reconciler),
			interceptors,
		))
		mux.Handle(api.NewAccountServiceHandler(
			api.NewAccountService(accounts.NewService(dbs.sqlite, accounts.Options{})),
			interceptors,
		))

		port := cfg.Server.Port
		if servePort != 0 {
			port = servePort
		}
		return serviceutil.StartHttpServer(ctx, port, mux)
	},
}
