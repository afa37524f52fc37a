package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Client holds the database client
type Client struct {
	DB     *gorm.DB
	db     *sql.DB // Underlying database for pool stats
	driver string
}

// PoolConfig holds connection pool configuration
type PoolConfig struct {
	MaxOpenConns    int           // Maximum number of open connections
	MaxIdleConns    int           // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum amount of time a connection may be reused
	ConnMaxIdleTime time.Duration // Maximum amount of time a connection may be idle
}

// SSLConfig holds SSL/TLS configuration for database connections
type SSLConfig struct {
	Mode         string // disable, require, verify-ca, verify-full
	CertPath     string // Path to client certificate
	KeyPath      string // Path to client key
	RootCertPath string // Path to root CA certificate
}

// Options configures Open.
type Options struct {
	Driver        string
	URL           string
	Pool          PoolConfig
	SSL           *SSLConfig
	SlowThreshold time.Duration
	Logger        logger.Logger
}

// DefaultPoolConfig returns sensible defaults for connection pooling
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// BuildConnectionString builds a PostgreSQL connection string with SSL parameters
func BuildConnectionString(baseURL string, sslCfg *SSLConfig) (string, error) {
	if sslCfg == nil {
		return baseURL, nil
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse database URL: %w", err)
	}

	query := parsedURL.Query()

	// SSL mode overrides any sslmode already in the URL
	if sslCfg.Mode != "" {
		query.Set("sslmode", sslCfg.Mode)
	}
	if sslCfg.CertPath != "" {
		query.Set("sslcert", sslCfg.CertPath)
	}
	if sslCfg.KeyPath != "" {
		query.Set("sslkey", sslCfg.KeyPath)
	}
	if sslCfg.RootCertPath != "" {
		query.Set("sslrootcert", sslCfg.RootCertPath)
	}

	parsedURL.RawQuery = query.Encode()

	return parsedURL.String(), nil
}

// SQLiteDSN makes sure foreign keys are enforced on every SQLite connection.
func SQLiteDSN(dsn string) string {
	if strings.Contains(dsn, "_fk=") || strings.Contains(dsn, "_foreign_keys=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_fk=1"
}

// Open connects to the configured store and configures the pool.
func Open(opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverPostgres, "":
		connStr, err := BuildConnectionString(opts.URL, opts.SSL)
		if err != nil {
			return nil, fmt.Errorf("failed building connection string: %w", err)
		}
		dialector = postgres.New(postgres.Config{DriverName: "postgres", DSN: connStr})
	case DriverSQLite:
		dialector = sqlite.Open(SQLiteDSN(opts.URL))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
		Logger: gormlogger.New(logWriter{log}, gormlogger.Config{
			SlowThreshold:             opts.SlowThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed opening connection to %s: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}

	pool := opts.Pool
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	log.Info("database connection pool configured",
		"driver", db.Dialector.Name(),
		"max_open", pool.MaxOpenConns,
		"max_idle", pool.MaxIdleConns,
	)

	return &Client{DB: db, db: sqlDB, driver: db.Dialector.Name()}, nil
}

// Migrate creates or updates every table.
func (c *Client) Migrate() error {
	return Migrate(c.DB)
}

// Migrate creates or updates every table on db.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed creating schema resources: %w", err)
	}
	return nil
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping checks if the database is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Stats returns database connection pool statistics
func (c *Client) Stats() sql.DBStats {
	return c.db.Stats()
}

// Dialect returns the ent dialect name of the store.
func (c *Client) Dialect() string {
	return Dialect(c.DB)
}

// Dialect maps a gorm connection to the matching ent dialect name.
func Dialect(db *gorm.DB) string {
	if db.Dialector.Name() == DriverSQLite {
		return dialect.SQLite
	}
	return dialect.Postgres
}

// IsUniqueViolation reports whether err is a UNIQUE or primary key collision.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

const sqliteForeignKeyMessage = "FOREIGN KEY constraint failed"

// IsForeignKeyViolation reports whether err is a rejected reference, either a
// missing parent or a RESTRICT rule blocking a delete.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return true
		}
		// RESTRICT rules are checked when the statement ends and come back
		// with the primary constraint code only.
		return sqliteErr.Code == sqlite3.ErrConstraint &&
			strings.Contains(sqliteErr.Error(), sqliteForeignKeyMessage)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503" || pqErr.Code == "23001"
	}
	return false
}

// IsNotFound reports whether err is gorm's record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// Translate maps a store error onto a domain error for resource: a missing
// row is NOT_FOUND and integrity violations are CONFLICT. Domain errors pass
// through unchanged.
func Translate(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case IsNotFound(err):
		return domain.NewNotFoundError(resource)
	case IsUniqueViolation(err):
		return conflict(resource, "%s with the same unique value already exists", err)
	case IsForeignKeyViolation(err):
		return conflict(resource, "%s references a missing record or is still referenced", err)
	}
	if _, ok := domain.AsDomainError(err); ok {
		return err
	}
	return fmt.Errorf("failed to access %s: %w", resource, err)
}

type logWriter struct {
	log logger.Logger
}

func (w logWriter) Printf(format string, args ...any) {
	w.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "gorm")
}

func conflict(resource, format string, err error) error {
	return &domain.DomainError{
		Code:     domain.ErrCodeConflict,
		Message:  fmt.Sprintf(format, resource),
		Resource: resource,
		Err:      err,
	}
}
