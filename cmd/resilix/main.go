// Resilix orchestrator server — ingests Prometheus/Alertmanager webhooks,
// triages and diagnoses incidents, opens tickets and remediation PRs, and
// drives incidents to resolution behind an approve-merge gate.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/resilix/orchestrator/pkg/api"
	"github.com/resilix/orchestrator/pkg/config"
	"github.com/resilix/orchestrator/pkg/database"
	"github.com/resilix/orchestrator/pkg/notify"
	"github.com/resilix/orchestrator/pkg/orchestrator"
	"github.com/resilix/orchestrator/pkg/providers/code"
	"github.com/resilix/orchestrator/pkg/providers/router"
	"github.com/resilix/orchestrator/pkg/providers/ticket"
	"github.com/resilix/orchestrator/pkg/session"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
		log.Printf("continuing with existing environment variables")
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	ctx := context.Background()

	cfg, err := config.Initialize(*configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	log.Printf("starting resilix, jira_mode=%s github_mode=%s", cfg.Jira.Mode, cfg.GitHub.Mode)

	store, db := initSessionStore(ctx, cfg)
	if db != nil {
		defer db.Close()
	}

	ticketProvider, ticketProviderName := initTicketProvider(cfg)
	codeProvider, codeProviderName := initCodeProvider(cfg)
	notifier := notify.NewService(notify.ServiceConfig{
		Token:        cfg.Slack.Token,
		Channel:      cfg.Slack.Channel,
		DashboardURL: cfg.Slack.DashboardURL,
	})

	pipeline := &orchestrator.Pipeline{
		TicketProvider:     ticketProvider,
		CodeProvider:       codeProvider,
		TicketProviderName: ticketProviderName,
		CodeProviderName:   codeProviderName,
		Jira:               cfg.Jira,
		Policy:             cfg.Policy,
		DefaultOwner:       cfg.GitHub.Owner,
		BuildSHA:           cfg.BuildSHA,
	}

	podID := getEnv("POD_ID", getEnv("HOSTNAME", "resilix-0"))
	workerCount := getEnvInt("WORKER_COUNT", 4)
	queueCapacity := getEnvInt("QUEUE_CAPACITY", 256)

	pool := orchestrator.NewPool(podID, pipeline, store, workerCount, queueCapacity)
	pool.Start(ctx)
	defer pool.Stop()

	server := api.NewServer(cfg, store, pool, db, ticketProvider, ticketProviderName, codeProvider, codeProviderName, notifier)

	log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
	if err := server.Start(cfg.HTTPAddr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

// initSessionStore resolves the incident session store backend declared by
// cfg.SessionBackend (adk_session_backend). config.Initialize has already
// rejected unknown values and a database backend without DATABASE_URL, so
// the only remaining failure mode here is the database itself being
// unreachable at startup, in which case the in-memory store is used instead.
func initSessionStore(ctx context.Context, cfg *config.Config) (session.Store, *sql.DB) {
	switch cfg.SessionBackend {
	case config.SessionBackendInMemory:
		log.Println("adk_session_backend=in_memory, using in-memory incident store")
		return session.NewMemoryStore(), nil

	case config.SessionBackendDatabase:
		dbCfg, err := database.LoadConfigFromEnv()
		if err != nil {
			log.Fatalf("invalid database configuration: %v", err)
		}

		pgStore := session.NewPostgresStore(dbCfg)
		store := session.EnsureInitialized(ctx, pgStore)
		resolved, ok := store.(*session.PostgresStore)
		if !ok {
			log.Println("PostgreSQL incident store unavailable, falling back to in-memory incident store")
			return store, nil
		}
		log.Println("connected to PostgreSQL incident store")
		return resolved, resolved.DB()

	default:
		log.Fatalf("unknown adk_session_backend %q", cfg.SessionBackend)
		return nil, nil
	}
}

func initTicketProvider(cfg *config.Config) (ticket.Provider, string) {
	if cfg.Jira.Mode == config.ModeAPI {
		if err := router.RequireJiraAPI(cfg.Jira); err != nil {
			log.Fatalf("jira provider not ready in api mode: %v", err)
		}
		return ticket.NewJiraProviderFromConfig(cfg.Jira), "jira_api"
	}
	return ticket.NewMockProvider(), "jira_mock"
}

func initCodeProvider(cfg *config.Config) (code.Provider, string) {
	if cfg.GitHub.Mode == config.ModeAPI {
		if err := router.RequireGitHubAPI(cfg.GitHub); err != nil {
			log.Fatalf("github provider not ready in api mode: %v", err)
		}
		return code.NewGitHubProviderFromConfig(cfg.GitHub), "github_api"
	}
	return code.NewMockProvider(), "github_mock"
}
