package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joestump/frequency/internal/api"
	"github.com/joestump/frequency/internal/auth"
	"github.com/joestump/frequency/internal/build"
	"github.com/joestump/frequency/internal/catalog"
	"github.com/joestump/frequency/internal/feed"
	"github.com/joestump/frequency/internal/playlist"
	"github.com/joestump/frequency/internal/profile"
	"github.com/joestump/frequency/internal/realtime"
	"github.com/joestump/frequency/internal/social"
	"github.com/joestump/frequency/internal/store"
)

const (
	sessionCleanupInterval = 5 * time.Minute
	shutdownTimeout        = 15 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			changes, err := feed.Open(ctx, feed.Options{
				Driver:        cfg.Feed.Driver,
				RedisAddr:     cfg.Redis.Addr,
				RedisPassword: cfg.Redis.Password,
				RedisDB:       cfg.Redis.DB,
				PostgresDSN:   cfg.DB.DSN,
			}, logger)
			if err != nil {
				return err
			}
			defer func() { _ = changes.Close() }()

			var provider *auth.Provider
			if cfg.OIDCEnabled() {
				provider, err = auth.NewProvider(ctx, auth.OIDCSettings{
					Issuer:       cfg.OIDC.Issuer,
					ClientID:     cfg.OIDC.ClientID,
					ClientSecret: cfg.OIDC.ClientSecret,
					RedirectURL:  cfg.OIDC.RedirectURL,
				})
				if err != nil {
					return err
				}
			}

			sessionManager := auth.NewSessionManager(database, cfg.DB.Driver, auth.SessionOptions{
				Lifetime:        cfg.SessionLifetime,
				Insecure:        cfg.InsecureCookies,
				CleanupInterval: sessionCleanupInterval,
			})

			userStore := store.NewUserStore(database)
			catalogStore := store.NewCatalogStore(database)
			tokenStore := auth.NewSQLTokenStore(database)

			reader := catalog.NewReader(catalogStore)
			socialManager := social.NewManager(store.NewFriendshipStore(database), userStore, changes, logger)
			playlistManager := playlist.NewManager(store.NewPlaylistStore(database), catalogStore, userStore, changes, logger)
			profiles := profile.NewService(userStore, reader, changes, logger)

			hub := realtime.NewHub()
			go hub.Run(ctx)

			router := api.NewRouter(api.Deps{
				Logger:         logger,
				DB:             database,
				SessionManager: sessionManager,
				AuthHandlers: auth.NewHandlers(provider, sessionManager, userStore, auth.HandlerOptions{
					AdminEmail: cfg.AdminEmail,
					Insecure:   cfg.InsecureCookies,
					OnLogout: func(userID string) {
						socialManager.Forget(userID)
						playlistManager.Forget(userID)
					},
				}, logger),
				AuthMiddleware: auth.NewMiddleware(sessionManager, userStore, logger),
				BearerAuth:     auth.NewBearerTokenMiddleware(tokenStore, userStore, logger),
				TokenStore:     tokenStore,
				UserStore:      userStore,
				Social:         socialManager,
				Playlists:      playlistManager,
				Catalog:        reader,
				Profiles:       profiles,
				Realtime:       realtime.NewServer(hub, socialManager, playlistManager, profiles, cfg.Realtime.Origins, logger),
				RateLimiter:    api.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
			})

			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening",
					"addr", cfg.HTTP.Addr,
					"version", build.Version,
					"db", cfg.DB.Driver,
					"feed", cfg.Feed.Driver,
					"oidc", provider != nil,
				)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			// Websockets are hijacked, so Shutdown does not wait for them;
			// the hub closes them when ctx ends.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return nil
		},
	}
}
