package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joeblew999/plat-geo/internal/osmimport"
	"github.com/joeblew999/plat-geo/internal/packfile"
	"github.com/joeblew999/plat-geo/internal/render"
	"github.com/joeblew999/plat-geo/internal/spatial"
	"github.com/joeblew999/plat-geo/internal/tileserver"
)

// ImportOptions binds tiles-import's flags, per spec section 6's CLI
// table.
type ImportOptions struct {
	DBFname         string
	OSMFname        string
	CoastlinesFname string
	Tasks           string
	Workers         int
}

// BenchmarkOptions binds tiles-benchmark's flags, per spec section 6.
type BenchmarkOptions struct {
	DBFname  string
	Tile     string
	Zoom     int
	Compress bool
}

// ServerOptions binds tiles-server's flags, per spec section 6.
type ServerOptions struct {
	DBFname  string
	ResDname string
	Port     int
	Compress bool
}

func main() {
	root := &cobra.Command{
		Use:     "tiles",
		Short:   "Ingest OSM data and serve fixed-point vector tiles",
		Version: "0.1.0",
	}

	root.AddCommand(newImportCmd())
	root.AddCommand(newBenchmarkCmd())
	root.AddCommand(newServerCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newImportCmd() *cobra.Command {
	opts := &ImportOptions{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Run one or more import tasks",
		Run: func(_ *cobra.Command, _ []string) {
			if err := runImport(opts); err != nil {
				fmt.Fprintln(os.Stderr, "tiles-import:", err)
				os.Exit(1)
			}
		},
	}
	cmd.Flags().StringVar(&opts.DBFname, "db-fname", envOr("TILES_DB_FNAME", ".data/tiles"), "Directory holding the tile database and pack file")
	cmd.Flags().StringVar(&opts.OSMFname, "osm-fname", os.Getenv("TILES_OSM_FNAME"), "Path to an OSM fixture JSON file (stand-in for a PBF extract)")
	cmd.Flags().StringVar(&opts.CoastlinesFname, "coastlines-fname", os.Getenv("TILES_COASTLINES_FNAME"), "Path to a coastline fixture JSON file (stand-in for a shapefile)")
	cmd.Flags().StringVar(&opts.Tasks, "tasks", envOr("TILES_TASKS", "all"), "Comma-separated tasks to run: all, coastlines, features, pack, tiles, stats")
	cmd.Flags().IntVar(&opts.Workers, "workers", 4, "Worker pool size for pass 2 classification")
	return cmd
}

func runImport(opts *ImportOptions) error {
	im, err := osmimport.Open(opts.DBFname)
	if err != nil {
		return err
	}
	defer im.Close()

	tasks := make(map[string]bool)
	for _, t := range strings.Split(opts.Tasks, ",") {
		tasks[strings.TrimSpace(t)] = true
	}
	coding := packfile.NewMetaCoding(nil)
	classifier := osmimport.Classifier(osmimport.DefaultClassifier)

	if tasks["all"] {
		var src *osmimport.Source
		if opts.OSMFname != "" {
			src, err = osmimport.LoadSource(opts.OSMFname)
			if err != nil {
				return err
			}
		} else {
			src = &osmimport.Source{}
		}
		if err := im.RunAll(context.Background(), src, opts.CoastlinesFname, classifier, coding, opts.Workers); err != nil {
			return err
		}
		return printStats(im)
	}

	if tasks["coastlines"] {
		if opts.CoastlinesFname == "" {
			return fmt.Errorf("tiles-import: --coastlines-fname required for the coastlines task")
		}
		if err := im.RunCoastlines(opts.CoastlinesFname); err != nil {
			return err
		}
	}
	if tasks["features"] {
		if opts.OSMFname == "" {
			return fmt.Errorf("tiles-import: --osm-fname required for the features task")
		}
		src, err := osmimport.LoadSource(opts.OSMFname)
		if err != nil {
			return err
		}
		if err := im.RunFeatures(context.Background(), src, classifier, coding, opts.Workers); err != nil {
			return err
		}
	}
	if tasks["pack"] {
		if err := im.RunPack(); err != nil {
			return err
		}
	}
	if tasks["tiles"] {
		if err := im.RunTiles(); err != nil {
			return err
		}
	}
	if tasks["stats"] {
		return printStats(im)
	}
	return nil
}

func printStats(im *osmimport.Importer) error {
	stats, err := im.RunStats()
	if err != nil {
		return err
	}
	fmt.Printf("features: %d rows\n", stats.FeatureRows)
	fmt.Printf("tiles:    %d rows\n", stats.TileRows)
	fmt.Printf("pack:     %d bytes\n", stats.PackBytes)
	return nil
}

func newBenchmarkCmd() *cobra.Command {
	opts := &BenchmarkOptions{}
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Render one tile, or every tile at a zoom, and report timing",
		Run: func(_ *cobra.Command, _ []string) {
			if err := runBenchmark(opts); err != nil {
				fmt.Fprintln(os.Stderr, "tiles-benchmark:", err)
				os.Exit(1)
			}
		},
	}
	cmd.Flags().StringVar(&opts.DBFname, "db-fname", envOr("TILES_DB_FNAME", ".data/tiles"), "Directory holding the tile database and pack file")
	cmd.Flags().StringVar(&opts.Tile, "tile", "", `Single tile to render as "z/x/y"`)
	cmd.Flags().IntVar(&opts.Zoom, "zoom", -1, "Render every tile at this zoom instead of a single tile")
	cmd.Flags().BoolVar(&opts.Compress, "compress", false, "Deflate the rendered MVT bytes")
	return cmd
}

func runBenchmark(opts *BenchmarkOptions) error {
	im, err := osmimport.Open(opts.DBFname)
	if err != nil {
		return err
	}
	defer im.Close()

	names, _, err := osmimport.LoadLayerNames(im.DB())
	if err != nil {
		return err
	}
	coding, _, err := osmimport.LoadMetaCoding(im.DB())
	if err != nil {
		return err
	}
	seaside, _, err := osmimport.LoadSeasideTree(im.DB())
	if err != nil {
		return err
	}
	maxPreparedZoom, preparedEnabled, err := osmimport.LoadMaxPreparedZoom(im.DB())
	if err != nil {
		return err
	}
	renderOpts := render.Options{
		Coding: coding, Names: names,
		PreparedEnabled: preparedEnabled, MaxPreparedZoom: maxPreparedZoom,
		Compress: opts.Compress,
	}

	var tiles []spatial.Tile
	switch {
	case opts.Tile != "":
		t, err := parseZXY(opts.Tile)
		if err != nil {
			return err
		}
		tiles = []spatial.Tile{t}
	case opts.Zoom >= 0:
		z := uint8(opts.Zoom)
		n := uint32(1) << z
		for x := uint32(0); x < n; x++ {
			for y := uint32(0); y < n; y++ {
				tiles = append(tiles, spatial.Tile{X: x, Y: y, Z: z})
			}
		}
	default:
		return fmt.Errorf("tiles-benchmark: one of --tile or --zoom is required")
	}

	var totalBytes int
	for _, t := range tiles {
		data, err := render.GetTile(im.DB(), im.PackFile(), seaside, t, renderOpts)
		if err != nil {
			return fmt.Errorf("render tile %v: %w", t, err)
		}
		totalBytes += len(data)
	}
	fmt.Printf("rendered %d tile(s), %d bytes total\n", len(tiles), totalBytes)
	return nil
}

func parseZXY(s string) (spatial.Tile, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return spatial.Tile{}, fmt.Errorf("tile must be \"z/x/y\", got %q", s)
	}
	z, err1 := strconv.ParseUint(parts[0], 10, 8)
	x, err2 := strconv.ParseUint(parts[1], 10, 32)
	y, err3 := strconv.ParseUint(parts[2], 10, 32)
	if err1 != nil || err2 != nil || err3 != nil {
		return spatial.Tile{}, fmt.Errorf("tile must be \"z/x/y\" of integers, got %q", s)
	}
	return spatial.Tile{X: uint32(x), Y: uint32(y), Z: uint8(z)}, nil
}

func newServerCmd() *cobra.Command {
	opts := &ServerOptions{}
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve live-rendered vector tiles over HTTP",
		Run: func(_ *cobra.Command, _ []string) {
			runServer(opts)
		},
	}
	cmd.Flags().StringVar(&opts.DBFname, "db-fname", envOr("TILES_DB_FNAME", ".data/tiles"), "Directory holding the tile database and pack file")
	cmd.Flags().StringVar(&opts.ResDname, "res-dname", os.Getenv("TILES_RES_DNAME"), "Static asset / glyph directory")
	cmd.Flags().IntVar(&opts.Port, "port", 8080, "Port to listen on")
	cmd.Flags().BoolVar(&opts.Compress, "compress", false, "Deflate rendered MVT bytes when the client accepts it")
	return cmd
}

func runServer(opts *ServerOptions) {
	srv, err := tileserver.New(tileserver.Config{
		DBFname:  opts.DBFname,
		ResDir:   opts.ResDname,
		Compress: opts.Compress,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "tiles-server:", err)
		os.Exit(1)
	}
	defer srv.Close()

	addr := fmt.Sprintf(":%d", opts.Port)
	fmt.Printf("tiles server listening on %s\n", addr)
	if err := http.ListenAndServe(addr, srv); err != nil {
		fmt.Fprintln(os.Stderr, "tiles-server:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
