package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
)

const masked = "***"

// ConfigAPI provides HTTP endpoints to view and modify configuration
type ConfigAPI struct {
	cfg    *Config
	mu     sync.RWMutex
	router *mux.Router
	reload func() (*Config, error)
}

func NewConfigAPI(cfg *Config) *ConfigAPI {
	api := &ConfigAPI{
		cfg:    cfg,
		router: mux.NewRouter(),
		reload: Load,
	}
	api.routes()
	return api
}

func (api *ConfigAPI) Router() *mux.Router {
	return api.router
}

func (api *ConfigAPI) routes() {
	api.router.HandleFunc("/configure", api.getConfig).Methods("GET")
	api.router.HandleFunc("/configure/", api.getConfig).Methods("GET")
	api.router.HandleFunc("/configure", api.updateConfig).Methods("POST")
	api.router.HandleFunc("/configure/reload", api.reloadConfig).Methods("POST")
	api.router.HandleFunc("/configure/validate", api.validateConfig).Methods("POST")
	api.router.HandleFunc("/configure/sections/{section}", api.getSection).Methods("GET")
}

func (api *ConfigAPI) getConfig(w http.ResponseWriter, r *http.Request) {
	api.mu.RLock()
	defer api.mu.RUnlock()
	writeJSON(w, api.safeConfigCopy())
}

func (api *ConfigAPI) updateConfig(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	defer api.mu.Unlock()
	var newCfg Config
	if err := json.NewDecoder(r.Body).Decode(&newCfg); err != nil {
		http.Error(w, fmt.Sprintf("invalid config payload: %v", err), http.StatusBadRequest)
		return
	}
	// A masked key coming back from a previous GET keeps the current secret.
	if newCfg.LLM.APIKey == masked {
		newCfg.LLM.APIKey = api.cfg.LLM.APIKey
	}
	if newCfg.Cache.MinIO.SecretKey == masked {
		newCfg.Cache.MinIO.SecretKey = api.cfg.Cache.MinIO.SecretKey
	}
	if newCfg.Sink.PostgresURL == masked {
		newCfg.Sink.PostgresURL = api.cfg.Sink.PostgresURL
	}
	if err := newCfg.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("invalid configuration: %v", err), http.StatusBadRequest)
		return
	}
	*api.cfg = newCfg
	writeJSON(w, api.safeConfigCopy())
}

func (api *ConfigAPI) reloadConfig(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	defer api.mu.Unlock()
	reloadedCfg, err := api.reload()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to reload config: %v", err), http.StatusInternalServerError)
		return
	}
	if err := reloadedCfg.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("invalid configuration: %v", err), http.StatusBadRequest)
		return
	}
	*api.cfg = *reloadedCfg
	writeJSON(w, api.safeConfigCopy())
}

func (api *ConfigAPI) validateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, fmt.Sprintf("invalid config payload: %v", err), http.StatusBadRequest)
		return
	}
	if err := cfg.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("invalid configuration: %v", err), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]interface{}{"valid": true, "message": "configuration is valid"})
}

func (api *ConfigAPI) getSection(w http.ResponseWriter, r *http.Request) {
	api.mu.RLock()
	defer api.mu.RUnlock()

	safe := api.safeConfigCopy()
	var section interface{}

	switch mux.Vars(r)["section"] {
	case "server":
		section = safe.Server
	case "llm":
		section = safe.LLM
	case "cache":
		section = safe.Cache
	case "audit":
		section = safe.Audit
	case "analysis":
		section = safe.Analysis
	case "sink":
		section = safe.Sink
	default:
		http.Error(w, fmt.Sprintf("unknown section: %s", mux.Vars(r)["section"]), http.StatusNotFound)
		return
	}

	writeJSON(w, section)
}

func (api *ConfigAPI) safeConfigCopy() *Config {
	copyCfg := *api.cfg
	copyCfg.Server.CORSOrigins = append([]string(nil), api.cfg.Server.CORSOrigins...)
	if copyCfg.LLM.APIKey != "" {
		copyCfg.LLM.APIKey = masked
	}
	if copyCfg.Cache.MinIO.SecretKey != "" {
		copyCfg.Cache.MinIO.SecretKey = masked
	}
	if copyCfg.Sink.PostgresURL != "" {
		copyCfg.Sink.PostgresURL = masked
	}
	return &copyCfg
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
