package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ericksa/keiyakucheck/internal/app"
	"github.com/ericksa/keiyakucheck/internal/config"
	"github.com/ericksa/keiyakucheck/internal/middleware"
	"github.com/ericksa/keiyakucheck/internal/speculative"
	"github.com/ericksa/keiyakucheck/internal/workers"
	"github.com/ericksa/keiyakucheck/pkg/mcp"
	"github.com/gorilla/mux"
)

// maxBody bounds request bodies; contracts are plain text.
const maxBody = 4 << 20

var handler *mcp.Handler

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	core, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer core.Close()

	if err := core.StartHousekeeping(); err != nil {
		log.Fatalf("Failed to schedule housekeeping: %v", err)
	}

	// Create MCP handler
	handler = mcp.NewHandler(core.Coordinator, core.Auditor)

	// Start server
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      newRouter(cfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting keiyakucheck gateway on %s (llm enabled: %t, cache: %s)",
			cfg.Server.Addr, cfg.LLM.Enabled, cfg.Cache.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
		return
	}
	log.Println("Server stopped")
}

func newRouter(cfg *config.Config) *mux.Router {
	router := mux.NewRouter()
	middleware.Register(router, cfg.Server.CORSOrigins)

	// MCP endpoint
	router.PathPrefix("/mcp").Handler(handler)

	// Health endpoint
	router.HandleFunc("/health", healthHandler).Methods("GET")

	// Tools endpoints
	router.HandleFunc("/tools", listToolsHandler).Methods("GET")
	router.HandleFunc("/tools/{worker}/{tool}", toolHandler).Methods("POST")

	// Analysis API
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/checkpoints", toolRoute("contract_checkpoints")).Methods("POST")
	api.HandleFunc("/classify", toolRoute("contract_classify")).Methods("POST")
	api.HandleFunc("/laws", toolRoute("contract_laws")).Methods("POST")
	api.HandleFunc("/catalogue", toolRoute("contract_catalogue")).Methods("GET")
	api.HandleFunc("/analyze", toolRoute("contract_analyze")).Methods("POST")
	api.HandleFunc("/speculations", toolRoute("contract_speculate")).Methods("POST")
	api.HandleFunc("/speculations/{id}", speculationHandler).Methods("GET")
	api.HandleFunc("/speculations/{id}/reconcile", reconcileHandler).Methods("POST")

	// Configuration API
	router.PathPrefix("/configure").Handler(config.NewConfigAPI(cfg).Router())

	return router
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func listToolsHandler(w http.ResponseWriter, r *http.Request) {
	if handler == nil {
		http.Error(w, "handler not initialized", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"tools": handler.Tools()})
}

func toolHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	args, ok := readArgs(w, r)
	if !ok {
		return
	}
	executeToolHandler(w, r, vars["worker"]+"_"+vars["tool"], args)
}

func toolRoute(toolName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var args json.RawMessage
		if r.Method != http.MethodGet {
			var ok bool
			if args, ok = readArgs(w, r); !ok {
				return
			}
		}
		executeToolHandler(w, r, toolName, args)
	}
}

func speculationHandler(w http.ResponseWriter, r *http.Request) {
	args, _ := json.Marshal(map[string]string{"id": mux.Vars(r)["id"]})
	executeToolHandler(w, r, "contract_speculation", args)
}

func reconcileHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Context json.RawMessage `json:"context"`
	}
	raw, ok := readArgs(w, r)
	if !ok {
		return
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	args, _ := json.Marshal(map[string]interface{}{
		"id":      mux.Vars(r)["id"],
		"context": body.Context,
	})
	executeToolHandler(w, r, "contract_reconcile", args)
}

// readArgs reads a JSON object body. An empty body reads as {}.
func readArgs(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return nil, false
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return json.RawMessage(`{}`), true
	}
	var args map[string]interface{}
	if err := json.Unmarshal(data, &args); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return data, true
}

func executeToolHandler(w http.ResponseWriter, r *http.Request, toolName string, args json.RawMessage) {
	if handler == nil {
		http.Error(w, "handler not initialized", http.StatusInternalServerError)
		return
	}

	result, err := handler.ExecuteTool(r.Context(), toolName, args)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(result)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, workers.ErrInvalidInput),
		errors.Is(err, workers.ErrTextRequired),
		errors.Is(err, workers.ErrIDRequired):
		return http.StatusBadRequest
	case errors.Is(err, speculative.ErrUnknownSpeculation),
		errors.Is(err, workers.ErrUnknownTool):
		return http.StatusNotFound
	case errors.Is(err, speculative.ErrAlreadyReconciled):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
