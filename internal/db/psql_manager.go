package db

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

type PostgresManager struct {
	pool      *pgxpool.Pool
	closeOnce sync.Once
}

var (
	postgresOnce sync.Once
	postgresMgr  *PostgresManager
	postgresErr  error
)

// GetPostgresManagerWithURL crea un manager con una URL específica
func GetPostgresManagerWithURL(ctx context.Context, connURL string, minConns, maxConns int32, connectTimeout, healthCheckPeriod time.Duration) (*PostgresManager, error) {
	poolConfig, err := pgxpool.ParseConfig(connURL)
	if err != nil {
		return nil, fmt.Errorf("db: configuración PostgreSQL inválida: %w", err)
	}

	poolConfig.MinConns = minConns
	poolConfig.MaxConns = maxConns
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	ctxTimeout := ctx
	if connectTimeout > 0 {
		var cancel context.CancelFunc
		ctxTimeout, cancel = context.WithTimeout(ctx, connectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(ctxTimeout, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("db: no fue posible crear el pool de PostgreSQL: %w", err)
	}

	if err := pool.Ping(ctxTimeout); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: ping fallido: %w", err)
	}

	log.Printf("db: Postgres pool inicializado -> host=%s port=%d user=%s db=%s sslmode=%s",
		poolConfig.ConnConfig.Host, poolConfig.ConnConfig.Port, poolConfig.ConnConfig.User,
		visibleDatabase(poolConfig.ConnConfig.Database), poolConfig.ConnConfig.RuntimeParams["sslmode"])

	return &PostgresManager{pool: pool}, nil
}

// GetPostgresManager retorna el manager singleton construido desde variables
// de entorno (y .env si existe)
func GetPostgresManager(ctx context.Context) (*PostgresManager, error) {
	postgresOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Println("db: no se ha encontrado archivo .env, usando únicamente variables de entorno del sistema")
		}

		cfg, err := buildPostgresConfig()
		if err != nil {
			postgresErr = err
			return
		}

		mgr, err := GetPostgresManagerWithURL(ctx, cfg.connString, cfg.minConns, cfg.maxConns, cfg.connectTimeout, cfg.healthCheckPeriod)
		if err != nil {
			postgresErr = err
			return
		}

		postgresMgr = mgr
	})
	return postgresMgr, postgresErr
}

func (m *PostgresManager) Close() {
	if m == nil {
		return
	}

	m.closeOnce.Do(func() {
		if m.pool != nil {
			m.pool.Close()
		}
	})
}

func (m *PostgresManager) Pool() *pgxpool.Pool {
	return m.pool
}

func (m *PostgresManager) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.pool.Exec(ctx, sql, args...)
}

func (m *PostgresManager) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return m.pool.Query(ctx, sql, args...)
}

func (m *PostgresManager) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.pool.QueryRow(ctx, sql, args...)
}

func (m *PostgresManager) Ping(ctx context.Context) error {
	return m.pool.Ping(ctx)
}

type pgConfig struct {
	connString        string
	connectTimeout    time.Duration
	healthCheckPeriod time.Duration
	minConns          int32
	maxConns          int32
}

func buildPostgresConfig() (*pgConfig, error) {
	dsn := os.Getenv("ALMACEN_PSQL_DB_URL")
	dsn = strings.Trim(dsn, "'\"")

	if dsn == "" {
		host := getEnv("ALMACEN_PG_HOST", "localhost")
		port := getEnv("ALMACEN_PG_PORT", "5432")
		user := getEnv("ALMACEN_PG_USER", "postgres")
		password := os.Getenv("ALMACEN_PG_PASSWORD")
		database := getEnv("ALMACEN_PG_DATABASE", "almacen")
		sslMode := getEnv("ALMACEN_PG_SSLMODE", "disable")
		appName := getEnv("ALMACEN_PG_APP_NAME", "api-almacen")

		u := &url.URL{
			Scheme: "postgres",
			Host:   fmt.Sprintf("%s:%s", host, port),
			Path:   "/" + database,
		}

		if password != "" {
			u.User = url.UserPassword(user, password)
		} else {
			u.User = url.User(user)
		}

		q := u.Query()
		q.Set("sslmode", sslMode)
		if appName != "" {
			q.Set("application_name", appName)
		}
		u.RawQuery = q.Encode()

		dsn = u.String()
	}

	if dsn == "" {
		return nil, fmt.Errorf("db: ALMACEN_PSQL_DB_URL vacío")
	}

	cfg := &pgConfig{
		connString:        dsn,
		connectTimeout:    getDurationEnv("ALMACEN_PG_CONNECT_TIMEOUT", "10s"),
		healthCheckPeriod: getDurationEnv("ALMACEN_PG_HEALTHCHECK_INTERVAL", "30s"),
		minConns:          int32(getIntEnv("ALMACEN_PG_MIN_CONNS", 1)),
		maxConns:          int32(getIntEnv("ALMACEN_PG_MAX_CONNS", 10)),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key, fallback string) time.Duration {
	value := getEnv(key, fallback)
	duration, err := time.ParseDuration(value)
	if err != nil {
		duration, _ = time.ParseDuration(fallback)
	}
	return duration
}

func getIntEnv(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func visibleDatabase(name string) string {
	if name == "" {
		return "(default)"
	}
	return name
}
