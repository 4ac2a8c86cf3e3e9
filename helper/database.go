package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Database wraps a postgres connection together with the logger of its owner.
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// DatabaseConfiguration holds everything needed to build a postgres DSN.
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
// environment. A .env file in the working directory is loaded first if present.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     os.Getenv("TRIAGE_DB_HOST"),
		Port:     os.Getenv("TRIAGE_DB_PORT"),
		Database: os.Getenv("TRIAGE_DB_DATABASE"),
		Username: os.Getenv("TRIAGE_DB_USERNAME"),
		Password: os.Getenv("TRIAGE_DB_PASSWORD"),
		Schema:   os.Getenv("TRIAGE_DB_SCHEMA"),
		SSLMode:  os.Getenv("TRIAGE_DB_SSLMODE"),
	}

	var missing []string
	if config.Host == "" {
		missing = append(missing, "TRIAGE_DB_HOST")
	}
	if config.Port == "" {
		missing = append(missing, "TRIAGE_DB_PORT")
	}
	if config.Database == "" {
		missing = append(missing, "TRIAGE_DB_DATABASE")
	}
	if config.Username == "" {
		missing = append(missing, "TRIAGE_DB_USERNAME")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing database environment variables: %s", strings.Join(missing, ", "))
	}

	if config.Schema == "" {
		config.Schema = "public"
	}
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	return config, nil
}

// DSN returns the lib/pq connection string for the configuration.
func (c *DatabaseConfiguration) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s search_path=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode, c.Schema,
	)
}

// NewDatabase opens and pings a connection. It panics if the database cannot
// be reached, use OpenDatabase to get the error instead.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	db, err := OpenDatabase(name, config, logger)
	if err != nil {
		log.Panicf("error connecting to database %s: %v", name, err)
	}
	return db
}

// OpenDatabase opens and pings a connection.
func OpenDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) (*Database, error) {
	db, err := connect(config)
	if err != nil {
		return nil, NewError("connect to database "+name, err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host), slog.String("schema", config.Schema))

	return &Database{
		Name:     name,
		Instance: db,
		Logger:   logger,
	}, nil
}

// NewTestDatabase is NewDatabase with a logger writing to stdout at debug level.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	return NewDatabase("test", config, NewLogger(os.Stdout, slog.LevelDebug))
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	if d == nil || d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}

func connect(config *DatabaseConfiguration) (*sql.DB, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, NewError("open", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, NewError("ping", err)
	}

	return db, nil
}
