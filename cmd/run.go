package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/kass/occmap/pkg/aggregate"
	"github.com/kass/occmap/pkg/config"
	"github.com/kass/occmap/pkg/imageio"
	"github.com/kass/occmap/pkg/models"
	"github.com/kass/occmap/pkg/postgis"
	"github.com/kass/occmap/pkg/records"
	"github.com/kass/occmap/pkg/render"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// loadConfig starts from the YAML file, if any, and applies every flag the
// user set explicitly on top of it
func loadConfig(cmd *cobra.Command) (config.Config, config.Settings, error) {
	cfg := flagCfg
	if configFile != "" {
		fileCfg, err := config.LoadFile(configFile)
		if err != nil {
			return cfg, config.Settings{}, err
		}
		cmd.Flags().Visit(func(f *pflag.Flag) {
			overrideField(&fileCfg, f.Name)
		})
		cfg = fileCfg
	}
	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	settings, err := cfg.Settings()
	if err != nil {
		return cfg, settings, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, settings, nil
}

func overrideField(dst *config.Config, name string) {
	switch name {
	case "verbose":
		dst.Verbose = flagCfg.Verbose
	case "input":
		dst.Input = flagCfg.Input
	case "informat":
		dst.InFormat = flagCfg.InFormat
	case "delimiter":
		dst.Delimiter = flagCfg.Delimiter
	case "idfield":
		dst.IDField = flagCfg.IDField
	case "coordfield":
		dst.CoordField = flagCfg.CoordField
	case "pg-dsn":
		dst.Postgres.DSN = flagCfg.Postgres.DSN
	case "pg-table":
		dst.Postgres.Table = flagCfg.Postgres.Table
	case "basemap":
		dst.Basemap = flagCfg.Basemap
	case "out":
		dst.Out = flagCfg.Out
	case "sizefactor":
		dst.SizeFactor = flagCfg.SizeFactor
	case "crop":
		dst.Crop = flagCfg.Crop
	case "alpha":
		dst.Alpha = flagCfg.Alpha
	case "imformat":
		dst.ImFormat = flagCfg.ImFormat
	case "sortorder":
		dst.SortOrder = flagCfg.SortOrder
	case "aggregate":
		dst.Aggregate = flagCfg.Aggregate
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, settings, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Basemap == "" {
		return errors.New("basemap: a basemap URL or file is required")
	}
	if cfg.Out == "" {
		return errors.New("out: an output image path is required")
	}
	ctx := cmd.Context()

	// Fetch the basemap first so a bad URL fails before the stream is read
	start := time.Now()
	basemap, format, err := imageio.NewLoader().Load(ctx, cfg.Basemap)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"source": cfg.Basemap,
		"format": format,
		"size":   basemap.Bounds().Size().String(),
		"took":   time.Since(start).Round(time.Millisecond),
	}).Info("basemap loaded")

	agg := aggregate.NewAggregator()
	if cfg.Aggregate != "" {
		if err := agg.LoadFromFile(cfg.Aggregate); err != nil {
			return fmt.Errorf("failed to load aggregate %s: %w", cfg.Aggregate, err)
		}
	} else if err := consume(ctx, cfg, settings, agg); err != nil {
		return err
	}

	res, err := render.Render(basemap, agg.Entries(), settings.Render)
	if err != nil {
		return err
	}
	if err := imageio.SaveFile(cfg.Out, res.Image, settings.Format); err != nil {
		return err
	}

	printSummary(os.Stdout, summaryFromRender(cfg.Out, agg, res))
	return nil
}

func runAggregate(cmd *cobra.Command, args []string) error {
	cfg, settings, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	agg := aggregate.NewAggregator()
	if err := consume(cmd.Context(), cfg, settings, agg); err != nil {
		return err
	}
	if err := agg.SaveToFile(snapshotOut); err != nil {
		return err
	}

	printSummary(os.Stdout, summaryFromAggregate(snapshotOut, agg))
	return nil
}

// consume feeds the configured record source into agg
func consume(ctx context.Context, cfg config.Config, settings config.Settings, agg *aggregate.Aggregator) error {
	start := time.Now()
	src, closer, err := openSource(ctx, cfg, settings)
	if err != nil {
		return err
	}
	defer closer()

	if err := agg.Consume(&contextSource{ctx: ctx, src: src}); err != nil {
		return err
	}

	stats := agg.Stats()
	log.WithFields(log.Fields{
		"read":     stats.Read,
		"accepted": stats.Accepted,
		"skipped":  stats.Skipped(),
		"keys":     agg.Len(),
		"took":     time.Since(start).Round(time.Millisecond),
	}).Info("records aggregated")
	return nil
}

func openSource(ctx context.Context, cfg config.Config, settings config.Settings) (records.Source, func(), error) {
	if cfg.Postgres.DSN != "" {
		db, err := postgis.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		rows, err := streamTable(ctx, db, cfg.Postgres.Table)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return rows, func() {
			rows.Close()
			db.Close()
		}, nil
	}

	var in io.Reader = os.Stdin
	closer := func() {}
	if cfg.Input != "" && cfg.Input != "-" {
		f, err := os.Open(cfg.Input)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open records: %w", err)
		}
		in, closer = f, func() { f.Close() }
	} else if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		log.Warn("reading records from the terminal; pipe a record stream or pass --input")
	}

	src, err := records.Open(settings.InFormat, in, settings.Records)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return src, closer, nil
}

// streamTable logs the table size and opens a cursor over its rows
func streamTable(ctx context.Context, db *postgis.PostGIS, table string) (*postgis.RowSource, error) {
	ctxLog := log.WithField("table", table)
	if n, err := db.Count(ctx, table); err != nil {
		ctxLog.WithError(err).Warn("could not count rows")
	} else {
		ctxLog = ctxLog.WithField("rows", n)
	}

	rows, err := db.Records(ctx, table)
	if err != nil {
		return nil, err
	}
	ctxLog.Info("reading records from PostGIS")
	return rows, nil
}

// contextSource stops a record stream once ctx is canceled
type contextSource struct {
	ctx context.Context
	src records.Source
}

func (c *contextSource) Next() (models.Record, error) {
	if err := c.ctx.Err(); err != nil {
		return models.Record{}, err
	}
	return c.src.Next()
}
