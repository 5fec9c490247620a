package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pevans/coinscrape/article"
	"github.com/pevans/coinscrape/config"
	"github.com/pevans/coinscrape/scraper"
)

const (
	maxArticles  = 1000
	maxDaysBack  = 365
	dateFlagForm = "2006-01-02"
)

var (
	errNoStop      = errors.New("one of -num or -date is required")
	errBothStops   = errors.New("-num and -date cannot be used together")
	errNoCategory  = errors.New("a category is required")
	errExtraArgs   = errors.New("only one category may be given")
	errNumRange    = fmt.Errorf("-num must be between 1 and %d", maxArticles)
	errDateFuture  = errors.New("-date cannot be in the future")
	errDateTooOld  = fmt.Errorf("-date cannot be more than %d days ago", maxDaysBack)
	errDateInvalid = errors.New("-date must be in YYYY-MM-DD format")
)

// options holds the parsed command line.
type options struct {
	category   string
	num        int
	date       string
	configPath string
	batch      int
	source     string
	logLevel   string
	quiet      bool

	driver   string
	dsn      string
	host     string
	user     string
	password string
	database string
}

// storageFlags registers the storage connection flags.
func (o *options) storageFlags(fs *flag.FlagSet) {
	fs.StringVar(&o.user, "u", "", "Database user")
	fs.StringVar(&o.user, "username", "", "Database user")
	fs.StringVar(&o.password, "p", "", "Database password")
	fs.StringVar(&o.password, "password", "", "Database password")
	fs.StringVar(&o.host, "host", "", "Database host")
	fs.StringVar(&o.database, "db", "", "Database name")
	fs.StringVar(&o.database, "database", "", "Database name")
	fs.StringVar(&o.driver, "driver", "", "Storage driver (sqlite or mysql)")
	fs.StringVar(&o.dsn, "dsn", "", "Data source name (sqlite file path or mysql DSN)")
	fs.StringVar(&o.configPath, "config", "", "Config file (default ~/.coinscrape/config.yaml)")
}

// parseArgs parses the command line. The category may come before or after
// the flags.
func parseArgs(args []string) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("coinscrape", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&opts.num, "num", 0, "Number of articles to scrape")
	fs.StringVar(&opts.date, "date", "", "Scrape articles published after this date (YYYY-MM-DD)")
	fs.IntVar(&opts.batch, "batch", 0, "Articles per extract and commit batch")
	fs.StringVar(&opts.source, "source", "", "Listing source (browser or feed)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.BoolVar(&opts.quiet, "quiet", false, "Do not print scraped articles")
	opts.storageFlags(fs)

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		opts.category = args[0]
		args = args[1:]
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	rest := fs.Args()
	if opts.category == "" && len(rest) > 0 {
		opts.category, rest = rest[0], rest[1:]
	}
	if len(rest) > 0 {
		return nil, errExtraArgs
	}

	if opts.category == "" {
		return nil, errNoCategory
	}
	if _, err := scraper.CategoryURL("", opts.category); err != nil {
		return nil, err
	}
	opts.category = strings.ToLower(opts.category)

	numSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "num" {
			numSet = true
		}
	})

	switch {
	case !numSet && opts.date == "":
		return nil, errNoStop
	case numSet && opts.date != "":
		return nil, errBothStops
	case numSet && (opts.num < 1 || opts.num > maxArticles):
		return nil, errNumRange
	}

	return opts, nil
}

// stopCondition builds the stop condition. Dates are read as midnight in
// now's location and must fall within the last maxDaysBack days.
func (o *options) stopCondition(now time.Time) (article.StopCondition, error) {
	if o.date == "" {
		return article.ByCount(o.num), nil
	}

	cutoff, err := time.ParseInLocation(dateFlagForm, o.date, now.Location())
	if err != nil {
		return article.StopCondition{}, errDateInvalid
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if cutoff.After(today) {
		return article.StopCondition{}, errDateFuture
	}
	if cutoff.Before(today.AddDate(0, 0, -maxDaysBack)) {
		return article.StopCondition{}, errDateTooOld
	}

	return article.ByDate(cutoff), nil
}

// apply overrides configuration values with the flags that were set.
func (o *options) apply(cfg *config.Config) {
	set := func(dst *string, val string) {
		if val != "" {
			*dst = val
		}
	}

	set(&cfg.Storage.Driver, o.driver)
	set(&cfg.Storage.DSN, o.dsn)
	set(&cfg.Storage.Host, o.host)
	set(&cfg.Storage.User, o.user)
	set(&cfg.Storage.Password, o.password)
	set(&cfg.Storage.Database, o.database)
	set(&cfg.Scrape.Source, o.source)
	set(&cfg.Logging.Level, o.logLevel)
	if o.batch != 0 {
		cfg.Scrape.BatchSize = o.batch
	}
}
