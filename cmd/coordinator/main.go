// Command coordinator hosts the Distributed Operation Coordinator behind
// an HTTP API: it loads a ShardConfigurationSet from disk via
// internal/configstore, builds a Shard Client Manager targeting
// internal/shardclient HTTP backends, and serves a representative subset
// of the access-management surface over HTTP (the full operation set is
// already reachable in-process through internal/coordinator.Coordinator,
// as splitctl and the integration tests do directly).
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dreamware/applicationaccess-coordinator/internal/config"
	"github.com/dreamware/applicationaccess-coordinator/internal/configstore"
	"github.com/dreamware/applicationaccess-coordinator/internal/coordinator"
	"github.com/dreamware/applicationaccess-coordinator/internal/domain"
	"github.com/dreamware/applicationaccess-coordinator/internal/metrics"
	"github.com/dreamware/applicationaccess-coordinator/internal/shardclient"
	"github.com/dreamware/applicationaccess-coordinator/internal/shardmanager"
)

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Str("component", "coordinator").Logger()

	cfg, err := config.Load(os.Getenv("ACCESSCOORD_CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	persister := configstore.New(cfg.ShardConfigPath)
	set, err := persister.Read()
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.ShardConfigPath).Msg("failed to read shard configuration")
	}

	var recorder metrics.Recorder = metrics.Noop{}
	mux := http.NewServeMux()
	if cfg.MetricsEnabled {
		registry := prometheus.NewRegistry()
		recorder = metrics.NewPrometheus(registry)
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	manager, err := shardmanager.Construct(set, shardclient.NewFromConfig, domain.FNVHashCodeGenerator, domain.FNVHashCodeGenerator, recorder)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct shard client manager")
	}

	coord := coordinator.New(manager, recorder)
	api := &api{coord: coord, persister: persister, log: log}
	mux.HandleFunc("/health", api.health)
	mux.HandleFunc("/users", api.users)
	mux.HandleFunc("/users/exists", api.containsUser)
	mux.HandleFunc("/groups", api.groups)
	mux.HandleFunc("/config/refresh", api.refreshConfig)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("coordinator listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("coordinator stopped")
}

type api struct {
	coord     *coordinator.Coordinator
	persister *configstore.FilePersister
	log       zerolog.Logger
}

func (a *api) health(w http.ResponseWriter, _ *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func (a *api) users(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		users, err := a.coord.GetUsers(ctx)
		if err != nil {
			a.fail(w, err)
			return
		}
		json.NewEncoder(w).Encode(map[string][]string{"items": users})
	case http.MethodPost:
		var body struct{ User string }
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			a.fail(w, err)
			return
		}
		if err := a.coord.AddUser(ctx, body.User); err != nil {
			a.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		var body struct{ User string }
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			a.fail(w, err)
			return
		}
		if err := a.coord.RemoveUser(ctx, body.User); err != nil {
			a.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *api) containsUser(w http.ResponseWriter, r *http.Request) {
	ok, err := a.coord.ContainsUser(r.Context(), r.URL.Query().Get("user"))
	if err != nil {
		a.fail(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]bool{"exists": ok})
}

func (a *api) groups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		groups, err := a.coord.GetGroups(ctx)
		if err != nil {
			a.fail(w, err)
			return
		}
		json.NewEncoder(w).Encode(map[string][]string{"items": groups})
	case http.MethodPost:
		var body struct{ Group string }
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			a.fail(w, err)
			return
		}
		if err := a.coord.AddGroup(ctx, body.Group); err != nil {
			a.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		var body struct{ Group string }
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			a.fail(w, err)
			return
		}
		if err := a.coord.RemoveGroup(ctx, body.Group); err != nil {
			a.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *api) refreshConfig(w http.ResponseWriter, r *http.Request) {
	set, err := a.persister.Read()
	if err != nil {
		a.fail(w, err)
		return
	}
	if err := a.coord.RefreshShardConfiguration(set); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *api) fail(w http.ResponseWriter, err error) {
	a.log.Error().Err(err).Msg("request failed")
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
