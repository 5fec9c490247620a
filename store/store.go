// Package store persists harvested articles into a normalized relational
// schema backed by sqlite or mysql.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/pevans/coinscrape/config"
)

// Custom errors for store operations
var (
	ErrUnknownDriver = errors.New("unknown storage driver")
	ErrUnknownTable  = errors.New("unknown table")
)

const mysqlDuplicateEntry = 1062

// dialect captures what differs between the supported databases.
type dialect struct {
	driver   string
	schema   []string
	isUnique func(error) bool
}

var sqliteDialect = dialect{
	driver: "sqlite3",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			summary TEXT UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS authors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT,
			publication_date TIMESTAMP,
			url TEXT UNIQUE,
			summary_id INTEGER UNIQUE NOT NULL REFERENCES summaries(id)
		)`,
		`CREATE TABLE IF NOT EXISTS authors_in_articles (
			article_id INTEGER REFERENCES articles(id),
			author_id INTEGER REFERENCES authors(id)
		)`,
		`CREATE TABLE IF NOT EXISTS tags_in_articles (
			article_id INTEGER REFERENCES articles(id),
			tag_id INTEGER REFERENCES tags(id)
		)`,
		`CREATE TABLE IF NOT EXISTS categories_in_articles (
			article_id INTEGER REFERENCES articles(id),
			category_id INTEGER REFERENCES categories(id)
		)`,
		`CREATE TABLE IF NOT EXISTS scrape_runs (
			run_id TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			stop TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP,
			articles_saved INTEGER NOT NULL DEFAULT 0,
			duplicates_skipped INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL
		)`,
	},
	isUnique: func(err error) bool {
		var sqliteErr sqlite3.Error
		if !errors.As(err, &sqliteErr) {
			return false
		}
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	},
}

var mysqlDialect = dialect{
	driver: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS summaries (
			id INT AUTO_INCREMENT PRIMARY KEY,
			summary VARCHAR(400) UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS authors (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(100) UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(100)
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(100)
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id INT AUTO_INCREMENT PRIMARY KEY,
			title VARCHAR(200),
			publication_date TIMESTAMP NULL,
			url VARCHAR(300) UNIQUE,
			summary_id INT UNIQUE NOT NULL,
			FOREIGN KEY (summary_id) REFERENCES summaries(id)
		)`,
		`CREATE TABLE IF NOT EXISTS authors_in_articles (
			article_id INT,
			author_id INT,
			FOREIGN KEY (article_id) REFERENCES articles(id),
			FOREIGN KEY (author_id) REFERENCES authors(id)
		)`,
		`CREATE TABLE IF NOT EXISTS tags_in_articles (
			article_id INT,
			tag_id INT,
			FOREIGN KEY (article_id) REFERENCES articles(id),
			FOREIGN KEY (tag_id) REFERENCES tags(id)
		)`,
		`CREATE TABLE IF NOT EXISTS categories_in_articles (
			article_id INT,
			category_id INT,
			FOREIGN KEY (article_id) REFERENCES articles(id),
			FOREIGN KEY (category_id) REFERENCES categories(id)
		)`,
		`CREATE TABLE IF NOT EXISTS scrape_runs (
			run_id CHAR(36) PRIMARY KEY,
			category VARCHAR(50) NOT NULL,
			stop VARCHAR(50) NOT NULL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NULL,
			articles_saved INT NOT NULL DEFAULT 0,
			duplicates_skipped INT NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL
		)`,
	},
	isUnique: func(err error) bool {
		var mysqlErr *mysql.MySQLError
		return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
	},
}

// tables lists every table in creation order. Dropping goes in reverse.
var tables = []string{
	"summaries",
	"authors",
	"tags",
	"categories",
	"articles",
	"authors_in_articles",
	"tags_in_articles",
	"categories_in_articles",
	"scrape_runs",
}

// Store is the relational article store.
type Store struct {
	db      *sql.DB
	dialect dialect
	cfg     config.StorageConfig
}

// Open connects to the store described by cfg and creates any missing
// tables. For mysql the database itself is created first.
func Open(ctx context.Context, cfg config.StorageConfig) (*Store, error) {
	var (
		d   dialect
		dsn string
		err error
	)

	switch cfg.Driver {
	case config.DriverSQLite:
		d, dsn = sqliteDialect, cfg.DSN
	case config.DriverMySQL:
		d = mysqlDialect
		if dsn, err = prepareMySQL(ctx, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, dialect: d, cfg: cfg}
	if err := store.InitSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// mysqlConfig builds the driver config from the DSN when it is a mysql DSN,
// and from the host, user, password and database settings otherwise.
func mysqlConfig(cfg config.StorageConfig) *mysql.Config {
	if mc, err := mysql.ParseDSN(cfg.DSN); err == nil && cfg.DSN != "" && mc.DBName != "" {
		mc.ParseTime = true
		return mc
	}

	addr := cfg.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "3306")
	}

	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = addr
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc
}

// prepareMySQL creates the configured database if needed and returns the
// DSN for it.
func prepareMySQL(ctx context.Context, cfg config.StorageConfig) (string, error) {
	mc := mysqlConfig(cfg)
	server := mc.Clone()
	server.DBName = ""
	db, err := sql.Open("mysql", server.FormatDSN())
	if err != nil {
		return "", fmt.Errorf("failed to open database server: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteIdent(mc.DBName)); err != nil {
		return "", fmt.Errorf("failed to create database: %w", err)
	}

	return mc.FormatDSN(), nil
}

func quoteIdent(name string) string {
	return "`" + name + "`"
}

// InitSchema creates the tables if they don't exist.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin starts a transaction for one commit window.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: tx, isUnique: s.dialect.isUnique}, nil
}
