package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"voxelgarden/internal/block"
	"voxelgarden/internal/config"
	"voxelgarden/internal/storage"
	"voxelgarden/internal/transport/ws"
	"voxelgarden/internal/world"
)

func main() {
	var (
		addr      = flag.String("addr", ":8080", "http listen address")
		title     = flag.String("title", "world_1", "world title")
		seed      = flag.String("seed", "1337", "world seed (used only when starting a fresh world)")
		configDir = flag.String("configs", "./configs", "config directory")
		dataDir   = flag.String("data", "./data", "runtime data directory")
		memOnly   = flag.Bool("mem", false, "run without persistence")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[worldd] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(filepath.Join(*configDir, "tuning.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found; using defaults")
			cfg = config.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	cat := block.Default()
	if path := filepath.Join(*configDir, "blocks.yaml"); fileExists(path) {
		cat, err = block.Load(path)
		if err != nil {
			logger.Fatalf("load block catalog: %v", err)
		}
	}

	var store *storage.Store
	if !*memOnly {
		dbPath := filepath.Join(*dataDir, "worlds", *title, "world.db")
		store, err = storage.Open(dbPath)
		if err != nil {
			logger.Fatalf("open storage: %v", err)
		}
	}
	// Fatalf skips deferred calls, so every exit below closes the store by
	// hand to checkpoint the WAL.
	closeStore := func() {
		if store != nil {
			if err := store.Close(); err != nil {
				logger.Printf("close storage: %v", err)
			}
		}
	}

	wsSrv := ws.NewServer(logger)

	w, err := world.New(*title, *seed, world.Options{
		Config:   cfg,
		Catalog:  cat,
		Store:    store,
		Notifier: wsSrv,
		Logger:   logger,
	})
	if err != nil {
		closeStore()
		logger.Fatalf("world: %v", err)
	}
	wsSrv.Attach(w)

	if err := w.Start(); err != nil {
		w.Dispose()
		closeStore()
		logger.Fatalf("start world: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP voxelgarden_cached_chunks Live cached chunk count.\n")
		fmt.Fprintf(rw, "# TYPE voxelgarden_cached_chunks gauge\n")
		fmt.Fprintf(rw, "voxelgarden_cached_chunks{world=%q} %d\n", w.Title(), w.CacheSize())

		fmt.Fprintf(rw, "# HELP voxelgarden_pending_updates Queued chunk updates.\n")
		fmt.Fprintf(rw, "# TYPE voxelgarden_pending_updates gauge\n")
		fmt.Fprintf(rw, "voxelgarden_pending_updates{world=%q} %d\n", w.Title(), w.Updates().Size())

		fmt.Fprintf(rw, "# HELP voxelgarden_generated_chunks Chunks lit for the first time.\n")
		fmt.Fprintf(rw, "# TYPE voxelgarden_generated_chunks counter\n")
		fmt.Fprintf(rw, "voxelgarden_generated_chunks{world=%q} %d\n", w.Title(), w.GeneratedChunks())

		fmt.Fprintf(rw, "# HELP voxelgarden_world_hour World clock hour.\n")
		fmt.Fprintf(rw, "# TYPE voxelgarden_world_hour gauge\n")
		fmt.Fprintf(rw, "voxelgarden_world_hour{world=%q} %d\n", w.Title(), w.Hour())

		fmt.Fprintf(rw, "# HELP voxelgarden_update_seconds Mean chunk update duration.\n")
		fmt.Fprintf(rw, "# TYPE voxelgarden_update_seconds gauge\n")
		fmt.Fprintf(rw, "voxelgarden_update_seconds{world=%q} %.6f\n", w.Title(), w.Updates().MeanUpdateDuration().Seconds())

		fmt.Fprintf(rw, "# HELP voxelgarden_ws_sessions Connected websocket sessions.\n")
		fmt.Fprintf(rw, "# TYPE voxelgarden_ws_sessions gauge\n")
		fmt.Fprintf(rw, "voxelgarden_ws_sessions{world=%q} %d\n", w.Title(), wsSrv.Sessions())
	})
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	if envBool("VG_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (VG_ENABLE_PPROF_HTTP=false)")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("%s listening on %s", w, *addr)
	serveErr := srv.ListenAndServe()

	w.Dispose()
	closeStore()
	if serveErr != nil && serveErr != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", serveErr)
	}
	logger.Printf("world persisted: %s", w)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
