package tileserver

import (
	_ "embed"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeblew999/plat-geo/internal/osmimport"
	"github.com/joeblew999/plat-geo/internal/packfile"
	"github.com/joeblew999/plat-geo/internal/render"
	"github.com/joeblew999/plat-geo/internal/spatial"
	"github.com/joeblew999/plat-geo/internal/tiledb"
)

//go:embed assets/index.html
var placeholderIndex []byte

// Config holds the settings one tiles-server run needs.
type Config struct {
	DBFname string // directory holding the duckdb file and pack file (tiles-import's dbFname)
	ResDir  string // static asset / glyph directory (spec section 6's res_dname)
	Compress bool
}

// Server is the tiles HTTP server: the live MVT endpoint, bundled glyph
// PBFs, a static asset fallback, and the CORS preamble. Grounded on
// internal/server.Server's CORS-header and http.FileServer idiom
// (handleTiles), generalized from serving a static tile directory to
// rendering tiles live via internal/render.
type Server struct {
	cfg Config
	mux *http.ServeMux

	db    *tiledb.DB
	pack  *os.File
	names *packfile.LayerNames
	coding *packfile.MetaCoding
	seaside *spatial.BQTree
	maxPreparedZoom uint8
	preparedEnabled bool
}

// New opens the tile database and pack file under cfg.DBFname and loads
// the immutable caches (layer names, meta coding, seaside BQ tree, max
// prepared zoom) once, shared read-only across every request (spec
// section 5).
func New(cfg Config) (*Server, error) {
	db, err := tiledb.Open(cfg.DBFname, "tiles")
	if err != nil {
		return nil, err
	}
	packPath := filepath.Join(cfg.DBFname, "pack.dat")
	pack, err := os.Open(packPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("tileserver: open pack file: %w", err)
	}

	names, _, err := osmimport.LoadLayerNames(db)
	if err != nil {
		pack.Close()
		db.Close()
		return nil, err
	}
	coding, _, err := osmimport.LoadMetaCoding(db)
	if err != nil {
		pack.Close()
		db.Close()
		return nil, err
	}
	seaside, _, err := osmimport.LoadSeasideTree(db)
	if err != nil {
		pack.Close()
		db.Close()
		return nil, err
	}
	maxPreparedZoom, preparedEnabled, err := osmimport.LoadMaxPreparedZoom(db)
	if err != nil {
		pack.Close()
		db.Close()
		return nil, err
	}

	s := &Server{
		cfg:             cfg,
		db:              db,
		pack:            pack,
		names:           names,
		coding:          coding,
		seaside:         seaside,
		maxPreparedZoom: maxPreparedZoom,
		preparedEnabled: preparedEnabled,
	}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/glyphs/", s.handleGlyphs)
	s.mux.HandleFunc("/", s.handleRoot)
	return s, nil
}

// Close releases the tile database and pack file handles.
func (s *Server) Close() error {
	err1 := s.pack.Close()
	err2 := s.db.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// ServeHTTP dispatches every request through the CORS preamble before
// routing to the tile/glyph/static handlers, matching the teacher's
// handleTiles pattern.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
	w.Header().Set("Access-Control-Allow-Headers", "Range, Content-Type")
	w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	s.mux.ServeHTTP(w, r)
}

// handleRoot serves a live-rendered tile for "/{z}/{x}/{y}.mvt" and
// falls through to the static asset directory (or the bundled
// placeholder) for everything else.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if t, ok := ParseTileURL(r.URL.Path); ok {
		s.serveTile(w, r, t)
		return
	}
	s.serveStatic(w, r)
}

func (s *Server) serveTile(w http.ResponseWriter, r *http.Request, t spatial.Tile) {
	wantsDeflate := false
	for _, enc := range r.Header.Values("Accept-Encoding") {
		if strings.Contains(enc, "deflate") {
			wantsDeflate = true
		}
	}
	compress := s.cfg.Compress
	if compress && !wantsDeflate {
		http.Error(w, "deflate encoding required", http.StatusNotImplemented)
		return
	}

	opts := render.Options{
		Coding:          s.coding,
		Names:           s.names,
		PreparedEnabled: s.preparedEnabled,
		MaxPreparedZoom: s.maxPreparedZoom,
		Compress:        compress,
	}
	data, err := render.GetTile(s.db, s.pack, s.seaside, t, opts)
	if err != nil {
		log.Printf("tileserver: get tile %v: %v", t, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if len(data) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.mapbox-vector-tile")
	if compress {
		w.Header().Set("Content-Encoding", "deflate")
	}
	w.Write(data)
}

// handleGlyphs serves bundled SDF glyph PBFs from res_dname/glyphs; this
// repo ships no embedded glyph binaries, so a deployment supplies its
// own glyph bundle under res_dname the same way it supplies viewer
// static assets.
func (s *Server) handleGlyphs(w http.ResponseWriter, r *http.Request) {
	if s.cfg.ResDir == "" {
		http.NotFound(w, r)
		return
	}
	http.StripPrefix("/glyphs/", http.FileServer(http.Dir(filepath.Join(s.cfg.ResDir, "glyphs")))).ServeHTTP(w, r)
}

// serveStatic serves res_dname as a static asset tree (viewer HTML, JS,
// CSS), falling back to the bundled placeholder page for "/" when no
// res_dname is configured or the file isn't found there.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	if s.cfg.ResDir != "" {
		full := filepath.Join(s.cfg.ResDir, filepath.Clean(r.URL.Path))
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			http.ServeFile(w, r, full)
			return
		}
	}
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(placeholderIndex)
}
