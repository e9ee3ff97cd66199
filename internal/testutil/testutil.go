package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vanishhq/vanish/internal/api"
	"github.com/vanishhq/vanish/internal/config"
	"github.com/vanishhq/vanish/internal/domain"
	"github.com/vanishhq/vanish/internal/ratelimit"
	"github.com/vanishhq/vanish/internal/repository"
	repoPostgres "github.com/vanishhq/vanish/internal/repository/postgres"
	"github.com/vanishhq/vanish/internal/service"
	"github.com/vanishhq/vanish/internal/storage"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_vanish"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations
	err = db.AutoMigrate(
		&domain.User{},
		&domain.Room{},
		&domain.ViewerIdentity{},
		&domain.MagicLinkToken{},
		&domain.TwoFactorToken{},
		&domain.Story{},
	)
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	tables := []string{
		"stories",
		"viewer_identities",
		"magic_link_tokens",
		"two_factor_tokens",
		"rooms",
		"users",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:               "0", // Random port
		Environment:        "test",
		FrontendOrigin:     "http://localhost:3000",
		BaseURL:            "http://localhost:8080",
		JWTSecret:          "test-jwt-secret-key-for-testing-only",
		JWTExpirationHours: 1,
		MagicLinkExpiry:    time.Hour,
		TempTokenExpiry:    5 * time.Minute,
		SecondFactorTries:  5,
		StorageBackend:     "local",
		PresignTTL:         5 * time.Minute,
	}
}

// CaptureMailer records outbound magic links instead of sending them.
type CaptureMailer struct {
	mu    sync.Mutex
	Sent  []string
	Links []string
}

func (m *CaptureMailer) Send(ctx context.Context, toEmail, magicLinkURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, toEmail)
	m.Links = append(m.Links, magicLinkURL)
	return nil
}

// SentCount returns how many deliveries have been captured so far.
func (m *CaptureMailer) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// LastLink returns the most recently captured magic link URL, or "".
func (m *CaptureMailer) LastLink() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Links) == 0 {
		return ""
	}
	return m.Links[len(m.Links)-1]
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	DB       *TestDB
	Repos    *repository.Repositories
	Services *service.Services
	Mailer   *CaptureMailer
	Config   *config.Config
}

// NewTestServer creates a complete test server with all dependencies
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	testDB := NewTestDB(t)
	cfg := TestConfig()

	repos := repoPostgres.NewRepositories(testDB.DB)
	capture := &CaptureMailer{}
	provider := storage.NewLocalProvider(cfg.BaseURL)

	services := service.NewServices(repos, capture, provider, cfg)
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.DefaultPolicies(), nil)
	router := api.NewRouter(services, limiter, cfg)

	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		DB:       testDB,
		Repos:    repos,
		Services: services,
		Mailer:   capture,
		Config:   cfg,
	}

	t.Cleanup(func() {
		server.Close()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}
