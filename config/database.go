package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/flowplatform/flow_backend/appctx"
	"github.com/joho/godotenv"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const SearchLimit = 20

var (
	db *gorm.DB

	// One *gorm.DB per tenant, keyed by tenant name. Resolved lazily from the
	// tenant registry (TENANT_DB_URL_<NAME> env entries).
	tenantMu  sync.RWMutex
	tenantDBs = make(map[string]*gorm.DB)
)

func GetDB() *gorm.DB {
	return db
}

func init() {
	// Load env from .env
	godotenv.Load()
	// Do NOT block startup in init() waiting for DB; the HTTP server must
	// start listening quickly. main() calls ConnectDatabaseWithRetry.
}

// ConnectDatabaseWithRetry connects the default DB and sets the global handle.
// Call this from main() AFTER the HTTP server is listening.
func ConnectDatabaseWithRetry() {
	dsn := defaultDSN()

	var attempt int
	for {
		attempt++
		var err error
		db, err = openPostgres(dsn)
		if err == nil {
			log.Printf("connected to database (attempt=%d)", attempt)
			return
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect database (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

// DBForTenant resolves the per-tenant database connection. Tenant DSNs come
// from the registry (TENANT_DB_URL_<NAME>); tenants without an entry share the
// default database.
func DBForTenant(tenantName string) (*gorm.DB, error) {
	tenantName = strings.TrimSpace(tenantName)
	if tenantName == "" {
		return db, nil
	}

	tenantMu.RLock()
	conn, ok := tenantDBs[tenantName]
	tenantMu.RUnlock()
	if ok {
		return conn, nil
	}

	envKey := "TENANT_DB_URL_" + strings.ToUpper(strings.ReplaceAll(tenantName, "-", "_"))
	dsn := strings.TrimSpace(os.Getenv(envKey))
	if dsn == "" {
		return db, nil
	}

	tenantMu.Lock()
	defer tenantMu.Unlock()
	if conn, ok := tenantDBs[tenantName]; ok {
		return conn, nil
	}
	conn, err := openPostgres(dsn)
	if err != nil {
		return nil, fmt.Errorf("could not connect tenant database %q: %w", tenantName, err)
	}
	tenantDBs[tenantName] = conn
	return conn, nil
}

// DBFromContext returns the database for the request's tenant, falling back to
// the default connection when no tenant is bound.
func DBFromContext(ctx context.Context) *gorm.DB {
	tenantName, ok := appctx.GetString(ctx, appctx.ContextKeyTenantName)
	if !ok || tenantName == "" {
		return db
	}
	conn, err := DBForTenant(tenantName)
	if err != nil {
		log.Printf("tenant db resolution failed for %q: %v; using default", tenantName, err)
		return db
	}
	return conn
}

// RegisteredTenantNames lists tenants that carry a dedicated database entry
// in the registry.
func RegisteredTenantNames() []string {
	var names []string
	for _, entry := range os.Environ() {
		if !strings.HasPrefix(entry, "TENANT_DB_URL_") {
			continue
		}
		key := strings.SplitN(entry, "=", 2)[0]
		names = append(names, strings.TrimPrefix(key, "TENANT_DB_URL_"))
	}
	return names
}

// AllDatabases returns the default connection plus every registered tenant
// connection. Background workers that sweep all tenants use this.
func AllDatabases() []*gorm.DB {
	dbs := make([]*gorm.DB, 0, 1)
	if db != nil {
		dbs = append(dbs, db)
	}
	for _, name := range RegisteredTenantNames() {
		conn, err := DBForTenant(name)
		if err != nil || conn == nil || conn == db {
			continue
		}
		dbs = append(dbs, conn)
	}
	return dbs
}

func openPostgres(dsn string) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), initConfig())
	if err != nil {
		return nil, err
	}

	// Tune database/sql pool for production.
	// Env overrides (optional):
	// - DB_MAX_OPEN_CONNS (default 50)
	// - DB_MAX_IDLE_CONNS (default 25)
	// - DB_CONN_MAX_LIFETIME_SECONDS (default 300)
	// - DB_CONN_MAX_IDLE_TIME_SECONDS (default 60)
	if sqlDB, derr := conn.DB(); derr == nil && sqlDB != nil {
		maxOpen := intFromEnv("DB_MAX_OPEN_CONNS", 50)
		maxIdle := intFromEnv("DB_MAX_IDLE_CONNS", 25)
		connMaxLife := time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second
		connMaxIdle := time.Duration(intFromEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)) * time.Second

		if maxOpen > 0 {
			sqlDB.SetMaxOpenConns(maxOpen)
		}
		if maxIdle >= 0 {
			sqlDB.SetMaxIdleConns(maxIdle)
		}
		if connMaxLife > 0 {
			sqlDB.SetConnMaxLifetime(connMaxLife)
		}
		if connMaxIdle > 0 {
			sqlDB.SetConnMaxIdleTime(connMaxIdle)
		}
	}

	if pluginErr := conn.Use(otelgorm.NewPlugin()); pluginErr != nil {
		log.Printf("db connected but failed to install otelgorm plugin: %v", pluginErr)
	}
	return conn, nil
}

func defaultDSN() string {
	if url := strings.TrimSpace(os.Getenv("DATABASE_URL")); url != "" {
		return url
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		envOr("DB_SSLMODE", "disable"),
	)
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// InitConfig Initialize Config
func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: initNamingStrategy(),
	}
}

// InitLog Connection Log Configuration
func initLog() logger.Interface {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:      false,
			LogLevel:      logger.Error,
			SlowThreshold: time.Second,
		},
	)
	return newLogger
}

// InitNamingStrategy Init NamingStrategy
func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: false,
		TablePrefix:   "",
	}
}
