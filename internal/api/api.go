package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/oauth2"

	"github.com/susu3304/mockinterviewbot/internal/config"
	"github.com/susu3304/mockinterviewbot/internal/db"
	"github.com/susu3304/mockinterviewbot/internal/session"
)

const discordAPIBase = "https://discord.com/api"

// Sessions reads live session state.
type Sessions interface {
	Lookup(guildID string) (session.Snapshot, bool)
}

// History reads announced cycles.
type History interface {
	ListCycles(ctx context.Context, guildID int64, limit int) ([]db.Cycle, error)
}

type API struct {
	router      *mux.Router
	server      *http.Server
	sessions    Sessions
	history     History
	config      *config.Config
	oauthConfig *oauth2.Config
	jwtSecret   []byte
	discordAPI  string
	httpClient  *http.Client
}

func New(cfg *config.Config, sessions Sessions, history History) *API {
	api := &API{
		router:     mux.NewRouter(),
		sessions:   sessions,
		history:    history,
		config:     cfg,
		jwtSecret:  []byte(cfg.JWTSecret),
		discordAPI: discordAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	a.router.HandleFunc("/healthz", a.handleHealthz).Methods("GET")

	// Auth endpoints
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
	a.router.HandleFunc("/api/auth/callback", a.handleCallback).Methods("GET")
	a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")

	// Protected endpoints
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/user/guilds", a.handleUserGuilds).Methods("GET")
	protected.HandleFunc("/guilds/{guild_id}/session", a.handleGuildSession).Methods("GET")
	protected.HandleFunc("/guilds/{guild_id}/history", a.handleGuildHistory).Methods("GET")
}

func (a *API) handler() http.Handler {
	// Note: When AllowedOrigins is "*", AllowCredentials must be false
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(a.router)
}

// Start blocks until the server stops. It returns nil after Shutdown.
func (a *API) Start() error {
	a.server = &http.Server{
		Addr:              a.config.WebBind,
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("API server listening on http://%s", a.config.WebBind)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *API) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}
