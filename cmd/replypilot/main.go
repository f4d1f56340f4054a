package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/replypilot/replypilot/internal/config"
	"github.com/replypilot/replypilot/internal/controller"
	"github.com/replypilot/replypilot/internal/hostpage"
	"github.com/replypilot/replypilot/internal/models"
	"github.com/replypilot/replypilot/internal/notifications"
	"github.com/replypilot/replypilot/internal/scheduler"
	"github.com/replypilot/replypilot/internal/settings"
	"github.com/replypilot/replypilot/internal/suggest"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Reply Pilot")

	selectors := hostpage.DefaultSelectors()
	if cfg.SelectorProfile != "" {
		selectors, err = hostpage.LoadSelectors(cfg.SelectorProfile)
		if err != nil {
			logrus.Fatalf("Failed to load selector profile: %v", err)
		}
	}

	page, err := loadPage(cfg)
	if err != nil {
		logrus.Fatalf("Failed to load host page: %v", err)
	}

	store, err := buildStore(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize settings store: %v", err)
	}

	engine := suggest.NewEngine(store)
	ctrl := controller.New(controller.Options{
		Page:      page,
		Selectors: selectors,
		Store:     store,
		Engine:    engine,
		Fallback:  controller.FallbackMode(cfg.FallbackMode),
	})

	ctx := context.Background()
	if st, err := store.Load(ctx); err != nil {
		logrus.Errorf("Failed to load settings: %v", err)
	} else if st.Enabled {
		ctrl.Start()
	}

	notificationService := notifications.NewService(cfg)
	schedulerService := scheduler.NewService(cfg, ctrl, store, notificationService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/api/ping", pingHandler(ctrl)).Methods("GET")
	router.HandleFunc("/api/toggle", toggleHandler(ctrl)).Methods("POST")
	router.HandleFunc("/api/settings", getSettingsHandler(store)).Methods("GET")
	router.HandleFunc("/api/settings", saveSettingsHandler(store, ctrl)).Methods("POST")
	router.HandleFunc("/api/test-provider", testProviderHandler(engine)).Methods("POST")
	router.HandleFunc("/api/navigate", navigateHandler(ctrl)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}
	ctrl.Stop()
	logrus.Info("Server exited")
}

func loadPage(cfg *config.Config) (*hostpage.Page, error) {
	if cfg.PageSnapshot == "" {
		return hostpage.New(), nil
	}
	f, err := os.Open(cfg.PageSnapshot)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return hostpage.Parse(f)
}

func buildStore(cfg *config.Config) (settings.Store, error) {
	if cfg.StorageAccount != "" {
		return settings.NewBlobStore(cfg.StorageAccount, cfg.StorageContainer)
	}
	return settings.NewFileStore(cfg.SettingsPath), nil
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func pingHandler(ctrl *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ctrl.Handle(r.Context(), controller.PingRequest{}))
	}
}

func toggleHandler(ctrl *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, ctrl.Handle(r.Context(), controller.ToggleRequest{Enabled: body.Enabled}))
	}
}

func getSettingsHandler(store settings.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := store.Load(r.Context())
		if err != nil {
			http.Error(w, `{"error":"failed to load settings"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func saveSettingsHandler(store settings.Store, ctrl *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var st models.Settings
		if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if err := store.Save(r.Context(), st); err != nil {
			http.Error(w, `{"error":"failed to save settings"}`, http.StatusInternalServerError)
			return
		}
		resp := ctrl.Handle(r.Context(), controller.SettingsChangedRequest{
			Changes: controller.SettingsChanges{Enabled: &st.Enabled},
		})
		writeJSON(w, http.StatusOK, resp)
	}
}

func testProviderHandler(engine *suggest.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Provider models.Provider `json:"provider"`
			APIKey   string          `json:"api_key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		reply, err := engine.TestProvider(r.Context(), body.Provider, body.APIKey)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": "API key is valid and working", "test_response": reply})
	}
}

func navigateHandler(ctrl *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl.NotifyNavigation()
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}
