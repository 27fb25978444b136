// Package server serves generated regions over websocket.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/singleflight"

	"github.com/OCharnyshevich/worldgen/internal/config"
	"github.com/OCharnyshevich/worldgen/internal/store"
	"github.com/OCharnyshevich/worldgen/pkg/world/anvil"
	"github.com/OCharnyshevich/worldgen/pkg/world/biome"
	"github.com/OCharnyshevich/worldgen/pkg/world/region"
)

const (
	// maxInFlight bounds concurrent region requests per connection.
	maxInFlight  = 4
	outQueue     = 16
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
)

// Server answers region requests from websocket clients. Regions found in
// the output directory are served from disk; others are generated, saved
// and indexed first.
type Server struct {
	cfg         *config.Config
	log         *slog.Logger
	gen         *region.Generator
	index       *store.Index
	compression anvil.Compression
	runID       string

	cache    *regionCache
	flight   singleflight.Group
	upgrader websocket.Upgrader
}

// New creates a Server. index may be nil; an empty cfg.OutputDir disables
// the disk cache.
func New(cfg *config.Config, gen *region.Generator, index *store.Index, log *slog.Logger) (*Server, error) {
	c, err := anvil.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:         cfg,
		log:         log,
		gen:         gen,
		index:       index,
		compression: c,
		runID:       uuid.NewString(),
		cache:       newRegionCache(cfg.CacheMB << 20),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
		},
	}, nil
}

// Start listens on cfg.ListenAddr and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on l until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	if s.index != nil {
		err := s.index.StartRun(ctx, store.Run{ID: s.runID, Seed: s.cfg.Seed, StartedAt: time.Now(), Config: s.cfg.YAML()})
		if err != nil {
			return err
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/regions", s.Handler(ctx))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.log.Info("server started",
		"addr", l.Addr().String(),
		"seed", s.cfg.Seed,
		"dim", s.gen.Dim(),
		"compression", s.compression.String(),
		"run", s.runID,
	)

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	s.log.Info("server shutting down")
	return nil
}

type frame struct {
	kind int
	data []byte
}

// Handler upgrades requests to websocket connections. Work for a
// connection is cancelled when the client goes away or ctx ends.
func (s *Server) Handler(ctx context.Context) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.log.Debug("websocket upgrade", "error", err)
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		log := s.log.With("remote", conn.RemoteAddr().String())
		log.Info("client connected")

		out := make(chan frame, outQueue)
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for {
				select {
				case <-ctx.Done():
					conn.Close()
					return
				case f := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(f.kind, f.data); err != nil {
						log.Debug("write", "error", err)
						cancel()
						return
					}
				}
			}
		}()

		slots := make(chan struct{}, maxInFlight)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}

			var req Request
			if err := json.Unmarshal(msg, &req); err != nil {
				s.send(ctx, out, jsonFrame(ErrorMsg{Type: TypeError, Error: "malformed request"}))
				continue
			}
			if req.ID == "" {
				req.ID = uuid.NewString()
			}

			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
			go func() {
				defer func() { <-slots }()
				s.send(ctx, out, s.handle(ctx, log, req))
			}()
		}

		cancel()
		<-writerDone
		log.Info("client disconnected")
	}
}

func (s *Server) send(ctx context.Context, out chan<- frame, f frame) {
	select {
	case out <- f:
	case <-ctx.Done():
	}
}

func (s *Server) handle(ctx context.Context, log *slog.Logger, req Request) frame {
	switch req.Type {
	case TypeInfo:
		return jsonFrame(s.info(req.ID))
	case TypeRegion:
		pos := region.Pos{X: req.X, Y: req.Y, Z: req.Z}
		start := time.Now()
		data, err := s.regionData(ctx, pos)
		if err != nil {
			log.Error("region request failed", "request", req.ID, "region", pos.String(), "error", err)
			return jsonFrame(ErrorMsg{Type: TypeError, ID: req.ID, Error: err.Error()})
		}
		log.Debug("region sent", "request", req.ID, "region", pos.String(), "bytes", len(data), "elapsed", time.Since(start))
		return frame{kind: websocket.BinaryMessage, data: data}
	default:
		return jsonFrame(ErrorMsg{Type: TypeError, ID: req.ID, Error: fmt.Sprintf("unknown request type %q", req.Type)})
	}
}

func (s *Server) info(id string) InfoMsg {
	cat := s.gen.Density.Catalog
	names := make([]string, cat.Len())
	for i := range names {
		names[i] = cat.MustLookup(biome.ID(i)).Name
	}
	return InfoMsg{
		Type:        TypeInfo,
		ID:          id,
		Seed:        s.cfg.Seed,
		Dim:         s.gen.Dim(),
		Compression: s.compression.String(),
		Biomes:      names,
	}
}

// regionData returns the encoded region at pos, trying memory, then the
// output directory, then the generator. Concurrent requests for
// the same region share one generation. A request whose shared generation
// was cancelled by another client's departure tries again with its own
// context.
func (s *Server) regionData(ctx context.Context, pos region.Pos) ([]byte, error) {
	if b, ok := s.cache.get(pos); ok {
		return b, nil
	}
	for {
		v, err, _ := s.flight.Do(pos.String(), func() (any, error) {
			b, err := s.load(ctx, pos)
			if err != nil {
				return nil, err
			}
			return s.cache.put(pos, b), nil
		})
		if err == nil {
			return v.([]byte), nil
		}
		if ctx.Err() == nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			continue
		}
		return nil, err
	}
}

func (s *Server) load(ctx context.Context, pos region.Pos) ([]byte, error) {
	dir := s.cfg.OutputDir
	save := dir != ""
	if save {
		data, err := os.ReadFile(anvil.Path(dir, pos))
		switch {
		case err == nil:
			if s.ownFile(data, pos) {
				return data, nil
			}
			// The file belongs to another world; keep it and serve a
			// freshly generated region instead.
			save = false
		case !errors.Is(err, os.ErrNotExist):
			return nil, err
		}
	}

	r, err := s.gen.Generate(ctx, s.cfg.Seed, pos)
	if err != nil {
		return nil, err
	}
	if !save {
		var buf bytes.Buffer
		if err := anvil.Encode(&buf, r, s.compression); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	path, err := anvil.SaveRegion(dir, r, s.compression)
	if err != nil {
		return nil, err
	}
	if s.index != nil {
		err := s.index.Record(ctx, store.Entry{
			Seed:        s.cfg.Seed,
			Pos:         pos,
			Dim:         r.Dim,
			Path:        path,
			Digest:      r.Digest(),
			Compression: s.compression.String(),
			RunID:       s.runID,
			GeneratedAt: time.Now(),
		})
		if err != nil {
			s.log.Warn("index region", "region", pos.String(), "error", err)
		}
	}
	return os.ReadFile(path)
}

// ownFile reports whether an encoded region file holds pos for the seed
// and region size this server generates.
func (s *Server) ownFile(data []byte, pos region.Pos) bool {
	rd, err := anvil.NewReader(bytes.NewReader(data))
	if err != nil {
		s.log.Warn("unreadable region file", "region", pos.String(), "error", err)
		return false
	}
	if rd.Seed != s.cfg.Seed || rd.Dim != s.gen.Dim() || rd.Pos != pos {
		s.log.Warn("region file belongs to another world",
			"region", pos.String(),
			"file_seed", rd.Seed,
			"file_dim", rd.Dim,
			"seed", s.cfg.Seed,
			"dim", s.gen.Dim(),
		)
		return false
	}
	return true
}

// checkOrigin accepts requests without an Origin header, requests from the
// server's own host, and origins listed in allowed.
func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

func jsonFrame(v any) frame {
	b, err := json.Marshal(v)
	if err != nil {
		b = []byte(`{"type":"error","error":"encode reply"}`)
	}
	return frame{kind: websocket.TextMessage, data: b}
}
