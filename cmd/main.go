package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/kass/occmap/pkg/config"
	"github.com/spf13/cobra"
)

var (
	configFile  string
	snapshotOut string
	flagCfg     = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "occmap",
	Short: "Plot occurrence records onto a basemap",
	Long: `Reads occurrence records (JSON lines, delimited text or a PostGIS table),
counts distinct identities per coordinate and draws them as sized, coloured
circles on an equirectangular basemap.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagCfg.Verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a map image",
	Long:  `Aggregate a record stream, or load a saved aggregate, and draw it onto a basemap.`,
	RunE:  runRender,
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate records into a snapshot file",
	Long:  `Read a record stream once and save the per-coordinate counts for later renders.`,
	RunE:  runAggregate,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "YAML config file; flags override its values")
	pf.BoolVarP(&flagCfg.Verbose, "verbose", "v", false, "Verbose output")
	pf.StringVarP(&flagCfg.Input, "input", "i", "", "Record file (default stdin)")
	pf.StringVar(&flagCfg.InFormat, "informat", flagCfg.InFormat, "Record stream format: json or delimited")
	pf.StringVar(&flagCfg.Delimiter, "delimiter", flagCfg.Delimiter, "Delimited stream separator: comma or tab")
	pf.StringVar(&flagCfg.IDField, "idfield", flagCfg.IDField, "Record identity field")
	pf.StringVar(&flagCfg.CoordField, "coordfield", flagCfg.CoordField, "Record coordinate field")
	pf.StringVar(&flagCfg.Postgres.DSN, "pg-dsn", "", "Read records from PostGIS using this connection string")
	pf.StringVar(&flagCfg.Postgres.Table, "pg-table", flagCfg.Postgres.Table, "PostGIS table with id and location columns")

	rf := renderCmd.Flags()
	rf.StringVar(&flagCfg.Basemap, "basemap", "", "Basemap URL (http(s)://) or local file")
	rf.StringVarP(&flagCfg.Out, "out", "o", "", "Output map image path")
	rf.Float64Var(&flagCfg.SizeFactor, "sizefactor", flagCfg.SizeFactor, "Circle size factor, >= 0")
	rf.StringVar(&flagCfg.Crop, "crop", "", "Crop box as [lat1,lon1,lat2,lon2]")
	rf.IntVar(&flagCfg.Alpha, "alpha", flagCfg.Alpha, "Circle opacity, 0-255")
	rf.StringVar(&flagCfg.ImFormat, "imformat", flagCfg.ImFormat, "Output format: jpeg, png or gif")
	rf.StringVar(&flagCfg.SortOrder, "sortorder", flagCfg.SortOrder, "Layering: lh (high on top) or hl (low on top)")
	rf.StringVar(&flagCfg.Aggregate, "aggregate", "", "Render from a saved aggregate snapshot instead of records")

	aggregateCmd.Flags().StringVarP(&snapshotOut, "out", "o", "aggregate.gob", "Snapshot output path")

	rootCmd.AddCommand(renderCmd, aggregateCmd)
}

func main() {
	log.SetHandler(cli.New(os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
