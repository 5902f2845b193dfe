package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"newsmill/aggregator"
	"newsmill/cache"
	"newsmill/catalog"
	"newsmill/config"
	"newsmill/feeds"
	"newsmill/fetch"
	"newsmill/images"
	"newsmill/logger"
	"newsmill/publish"
	"newsmill/types"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "sources":
		err = runSources(ctx)
	case "aggregate":
		err = runAggregate(ctx)
	case "check":
		err = runCheck(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Log.Error(err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `newsmill: feed aggregation engine

Usage:
  newsmill sources      build per-locale and global source catalogs from CSV
  newsmill aggregate    fetch feeds, normalize articles, write feed.json + report.json
  newsmill check        validate a report.json for silent data loss

Configuration is read from the environment (see .env.example).`)
}

// runSources builds sources.<locale>.json for every configured locale plus
// the merged sources.global.json.
func runSources(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	store, err := publish.NewRemoteStore(ctx, cfg)
	if err != nil {
		return err
	}
	if store != nil && !cfg.NoDownload {
		if err := store.DownloadLookups(ctx, cfg.OutputDir); err != nil {
			logger.Log.Warnf("lookup download failed, building without enrichment: %v", err)
		}
	}
	lookups := catalog.LoadLookups(cfg.OutputDir)

	catalogs, schemaErr, err := loadCatalogs(cfg, lookups)
	if err != nil {
		return err
	}

	artifacts := make([]string, 0, len(cfg.Locales)+1)
	for _, locale := range cfg.Locales {
		cat, ok := catalogs[locale]
		if !ok {
			continue
		}
		path := cfg.SourcesJSON(locale)
		if err := publish.WriteJSON(path, cat.SortedByName()); err != nil {
			return err
		}
		logger.Log.WithFields(map[string]interface{}{
			"locale":    locale,
			"sources":   len(cat.Sources),
			"malformed": cat.MalformedRows,
		}).Info("catalog written")
		artifacts = append(artifacts, path)
	}

	global, conflicts := catalog.BuildGlobal(cfg.Locales, catalogs)
	globalPath := filepath.Join(cfg.OutputDir, config.GlobalSourcesFile)
	if err := publish.WriteJSON(globalPath, global); err != nil {
		return err
	}
	logger.Log.WithFields(map[string]interface{}{
		"sources":   len(global),
		"conflicts": len(conflicts),
	}).Info("global catalog written")
	artifacts = append(artifacts, globalPath)

	if store != nil && !cfg.NoUpload {
		if err := store.UploadArtifacts(ctx, artifacts...); err != nil {
			return err
		}
	}
	// Surface schema failures after the healthy locales are published.
	return schemaErr
}

// runAggregate executes one full aggregation run over the configured
// locales' catalogs.
func runAggregate(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	// A schema failure drops that locale from the run but does not abort
	// the others; the run only fails when no usable sources remain.
	catalogs, _, err := loadCatalogs(cfg, catalog.LoadLookups(cfg.OutputDir))
	if err != nil {
		return err
	}
	global, _ := catalog.BuildGlobal(cfg.Locales, catalogs)
	sources := make([]types.Source, len(global))
	for i, gs := range global {
		sources[i] = gs.Source
	}

	store, err := publish.NewRemoteStore(ctx, cfg)
	if err != nil {
		return err
	}

	fetchCache, err := cache.New(cfg.CacheDir, cfg.NoDownload)
	if err != nil {
		return err
	}
	client := fetch.New(cfg.RequestTimeout, cfg.UserAgent, cfg.MaxAttempts)
	thumbs := images.NewGenerator(fetchCache, client, cfg.ThumbWidth, cfg.ThumbHeight, cfg.ThumbQuality)
	processor := feeds.NewProcessor(fetchCache, client, thumbs, feeds.NewNormalizer(cfg.MaxSummaryRunes))

	coord := aggregator.NewCoordinator(processor, cfg.Concurrency, cfg.RunDeadline)
	doc, report, err := coord.Run(ctx, sources)
	if err != nil {
		return err
	}

	feedPath := filepath.Join(cfg.OutputDir, config.FeedFile)
	reportPath := filepath.Join(cfg.OutputDir, config.ReportFile)
	if err := publish.WriteJSON(feedPath, doc.Articles); err != nil {
		return err
	}
	if err := publish.WriteJSON(reportPath, report); err != nil {
		return err
	}

	if store != nil && !cfg.NoUpload {
		return store.UploadArtifacts(ctx, feedPath, reportPath)
	}
	return nil
}

// runCheck validates a previously written report.json.
func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	reportPath := fs.String("report", filepath.Join("output", config.ReportFile), "path to report.json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger.Init("info", false)

	raw, err := os.ReadFile(*reportPath)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}
	var report types.RunReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return fmt.Errorf("check: malformed report: %w", err)
	}

	problems := aggregator.CheckReport(&report)
	for _, p := range problems {
		logger.Log.Error(p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("check: %d problem(s) found in %s", len(problems), *reportPath)
	}
	logger.Log.WithField("sources", report.TotalSources).Info("report is consistent")
	return nil
}

// loadCatalogs reads every configured locale's CSV. A missing file is fatal
// (the locale list is deliberate configuration); a schema error is fatal
// for that locale only. The remaining locales still load, and the schema
// error is reported separately so callers decide whether to fail the
// command after finishing the rest.
func loadCatalogs(cfg *config.Config, lookups *catalog.Lookups) (map[string]*catalog.Catalog, error, error) {
	catalogs := make(map[string]*catalog.Catalog, len(cfg.Locales))
	var schemaErrs []error
	for _, locale := range cfg.Locales {
		cat, err := catalog.LoadLocale(cfg.SourcesCSV(locale), locale)
		if err != nil {
			if errors.Is(err, catalog.ErrSchema) {
				logger.Log.WithField("locale", locale).Error(err)
				schemaErrs = append(schemaErrs, err)
				continue
			}
			return nil, nil, err
		}
		for i := range cat.Sources {
			lookups.Apply(&cat.Sources[i])
		}
		catalogs[locale] = cat
	}
	return catalogs, errors.Join(schemaErrs...), nil
}
