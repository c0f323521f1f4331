package helper

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the Postgres connection settings.
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfiguration reads the database configuration from the
// environment (loading a .env file if present). DB_HOST, DB_PORT,
// DB_DATABASE, DB_USERNAME and DB_PASSWORD are required, DB_SCHEMA
// defaults to "public" and DB_SSLMODE to "disable".
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		Database: os.Getenv("DB_DATABASE"),
		Username: os.Getenv("DB_USERNAME"),
		Password: os.Getenv("DB_PASSWORD"),
		Schema:   os.Getenv("DB_SCHEMA"),
		SSLMode:  os.Getenv("DB_SSLMODE"),
	}

	if config.Host == "" || config.Port == "" || config.Database == "" ||
		config.Username == "" || config.Password == "" {
		return nil, NewError("read database configuration",
			fmt.Errorf("DB_HOST, DB_PORT, DB_DATABASE, DB_USERNAME and DB_PASSWORD must be set"))
	}
	if config.Schema == "" {
		config.Schema = "public"
	}
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	return config, nil
}

// connectionString builds the lib/pq connection URL for the
// configuration. An empty SSLMode falls back to "disable".
func (c *DatabaseConfiguration) connectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&search_path=%s",
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		sslMode,
		c.Schema,
	)
}

// Database wraps an open sql.DB together with its name and logger.
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens a connection to the configured Postgres instance.
// It panics if the database is not reachable, mirroring the fail-fast
// behaviour expected at startup.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	db, err := sql.Open("postgres", config.connectionString())
	if err != nil {
		log.Panicf("error opening database: %#v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Panicf("error pinging database: %#v", err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("database", config.Database))

	return &Database{
		Name:     name,
		Instance: db,
		Logger:   logger,
	}
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	return d.Instance.Close()
}

// NewTestDatabase opens a database connection with a discard logger for tests.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	logger := slog.New(slog.DiscardHandler)
	return NewDatabase("test", config, logger)
}
