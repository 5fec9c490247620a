package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pevans/coinscrape/config"
	"github.com/pevans/coinscrape/logging"
	"github.com/pevans/coinscrape/store"
)

// options holds the parsed command line.
type options struct {
	configPath  string
	print       bool
	reset       bool
	drop        bool
	articles    int
	runs        int
	writeConfig bool

	driver   string
	dsn      string
	host     string
	user     string
	password string
	database string
}

func parseArgs(args []string) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("coinscrape-db", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&opts.print, "print", false, "Print every table")
	fs.BoolVar(&opts.reset, "reset", false, "Drop and recreate every table")
	fs.BoolVar(&opts.drop, "delete", false, "Delete all stored data")
	fs.IntVar(&opts.articles, "articles", 0, "Show the N most recent articles")
	fs.IntVar(&opts.runs, "runs", 0, "Show the N most recent scrape runs")
	fs.BoolVar(&opts.writeConfig, "write-config", false, "Write a default config file if none exists")
	fs.StringVar(&opts.configPath, "config", "", "Config file (default ~/.coinscrape/config.yaml)")
	fs.StringVar(&opts.user, "u", "", "Database user")
	fs.StringVar(&opts.user, "username", "", "Database user")
	fs.StringVar(&opts.password, "p", "", "Database password")
	fs.StringVar(&opts.password, "password", "", "Database password")
	fs.StringVar(&opts.host, "host", "", "Database host")
	fs.StringVar(&opts.database, "db", "", "Database name")
	fs.StringVar(&opts.database, "database", "", "Database name")
	fs.StringVar(&opts.driver, "driver", "", "Storage driver (sqlite or mysql)")
	fs.StringVar(&opts.dsn, "dsn", "", "Data source name")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return opts, nil
}

func (o *options) apply(cfg *config.Config) {
	for _, f := range []struct {
		dst *string
		val string
	}{
		{&cfg.Storage.Driver, o.driver},
		{&cfg.Storage.DSN, o.dsn},
		{&cfg.Storage.Host, o.host},
		{&cfg.Storage.User, o.user},
		{&cfg.Storage.Password, o.password},
		{&cfg.Storage.Database, o.database},
	} {
		if f.val != "" {
			*f.dst = f.val
		}
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseArgs(args)
	if errors.Is(err, flag.ErrHelp) {
		printUsage()
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage()
		return 2
	}

	if opts.writeConfig {
		if err := writeConfig(opts.configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	cfg, err := config.Load(opts.configPath, os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		return 2
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		return 2
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open store", "error", err)
		return 1
	}
	defer st.Close()
	slog.InfoContext(ctx, "schema initialized", "driver", cfg.Storage.Driver)

	if err := execute(ctx, st, opts, os.Stdout); err != nil {
		slog.ErrorContext(ctx, "maintenance failed", "error", err)
		return 1
	}
	return 0
}

func writeConfig(path string) error {
	if path == "" {
		var err error
		if path, err = config.ConfigFilePath(); err != nil {
			return err
		}
	}

	created, err := config.WriteDefaultConfigFile(path, false)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("  ✓ Config file: %s\n", path)
	} else {
		fmt.Printf("  Config file: %s (already exists)\n", path)
	}
	return nil
}

func printUsage() {
	fmt.Println("coinscrape-db - Manage the coinscrape article database")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  coinscrape-db [flags]")
	fmt.Println()
	fmt.Println("The schema is always created if it is missing.")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -reset            Drop and recreate every table")
	fmt.Println("  -print            Print every table")
	fmt.Println("  -articles N       Show the N most recent articles")
	fmt.Println("  -runs N           Show the N most recent scrape runs")
	fmt.Println("  -delete           Delete all stored data (runs last)")
	fmt.Println("  -write-config     Write a default config file if none exists")
	fmt.Println("  -config PATH      Config file (default ~/.coinscrape/config.yaml)")
	fmt.Println()
	fmt.Println("Storage flags:")
	fmt.Println("  -driver NAME      sqlite or mysql")
	fmt.Println("  -dsn DSN          sqlite file path or mysql DSN")
	fmt.Println("  -host HOST        Database host")
	fmt.Println("  -u, -username     Database user")
	fmt.Println("  -p, -password     Database password")
	fmt.Println("  -db, -database    Database name")
}
