package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pictoforge/pictoforge/backend-go/internal/collab"
	"github.com/pictoforge/pictoforge/backend-go/internal/config"
	"github.com/pictoforge/pictoforge/backend-go/internal/document"
	"github.com/pictoforge/pictoforge/backend-go/internal/engine"
	"github.com/pictoforge/pictoforge/backend-go/internal/export"
	"github.com/pictoforge/pictoforge/backend-go/internal/generate"
	mw "github.com/pictoforge/pictoforge/backend-go/internal/middleware"
	"github.com/pictoforge/pictoforge/backend-go/internal/pictogram"
	"github.com/pictoforge/pictoforge/backend-go/internal/typeid"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	var gen pictogram.Generator
	if cfg.AnthropicAPIKey != "" {
		gen = generate.NewGenerator(generate.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel))
	} else {
		slog.Info("ANTHROPIC_API_KEY not set, generation disabled")
	}

	pictogramService := pictogram.NewService(store, gen)
	pictogramHandler := pictogram.NewHandler(pictogramService)

	// Rooms load and persist through the same service as the REST API.
	docSaver := func(ctx context.Context, pictogramID string, root *document.Node) error {
		_, err := pictogramService.SaveDocument(ctx, pictogramID, root)
		return err
	}
	hub := collab.NewHub(pictogramService.LoadDocument, docSaver, cfg.AutosaveInterval)
	go hub.Run()

	exportHandler := export.NewHandler(liveLoader{hub: hub, service: pictogramService})

	editorOptions := engine.DefaultOptions()
	editorOptions.MinZoom = cfg.MinZoom
	editorOptions.MaxZoom = cfg.MaxZoom
	editorOptions.FitPadding = cfg.FitPadding
	editorOptions.HistoryLimit = cfg.HistoryLimit

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Zoom limits, padding and history depth for the browser engine.
	r.HandleFunc("/api/editor/options", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(editorOptions)
	}).Methods("GET")

	exportHandler.Register(r)
	pictogramHandler.Register(r)

	originPatterns := cfg.OriginPatterns()
	r.HandleFunc("/ws/pictograms/{id}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, originPatterns)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr: addr,
		// CORS wraps the router so preflight requests, which match no
		// route, still get their headers.
		Handler:      mw.CORS(cfg.Origins())(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop the hub first so dirty rooms are saved while the store is open.
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "postgres", cfg.UsesPostgres())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (pictogram.Store, func(), error) {
	if cfg.UsesPostgres() {
		pool, err := pictogram.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store, err := pictogram.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	}

	db, err := pictogram.OpenSQLite(cfg.SQLitePath())
	if err != nil {
		return nil, nil, err
	}
	store, err := pictogram.NewSQLiteStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, func() { db.Close() }, nil
}

// liveLoader exports the document of an open room, falling back to the
// stored copy.
type liveLoader struct {
	hub     *collab.Hub
	service *pictogram.Service
}

func (l liveLoader) LoadDocument(ctx context.Context, id string) (*document.Node, error) {
	if root, _, ok := l.hub.Snapshot(id); ok {
		return root, nil
	}
	return l.service.LoadDocument(ctx, id)
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, originPatterns []string) {
	pictogramID := mux.Vars(r)["id"]
	if err := typeid.Validate(pictogramID, typeid.PrefixPictogram); err != nil {
		http.Error(w, "invalid pictogram id", http.StatusBadRequest)
		return
	}

	// No accounts: every connection is an anonymous participant.
	userID := "anon-" + uuid.New().String()[:8]
	displayName := r.URL.Query().Get("name")
	if displayName == "" {
		displayName = "Anonymous"
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := collab.NewClient(hub, conn, userID, displayName, pictogramID, uuid.New().String())
	client.Serve(r.Context())
}
