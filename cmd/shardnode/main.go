// Command shardnode runs a single shard node: it hosts one
// accessmanager.MemoryShardClient behind shardserver's HTTP API, so a
// coordinator process can route User/Group/entity operations to it over
// the wire via internal/shardclient.
//
// Configuration is read the same way every process in this repo reads it;
// see internal/config.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dreamware/applicationaccess-coordinator/internal/accessmanager"
	"github.com/dreamware/applicationaccess-coordinator/internal/config"
	"github.com/dreamware/applicationaccess-coordinator/internal/shardserver"
)

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Str("component", "shardnode").Logger()

	cfg, err := config.Load(os.Getenv("ACCESSCOORD_CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	description := os.Getenv("ACCESSCOORD_SHARD_DESCRIPTION")
	if description == "" {
		description = "shardnode-" + cfg.ListenAddr
	}

	backend := accessmanager.New(description)
	handler := shardserver.New(backend, log)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Str("description", description).Msg("shardnode listening")
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
	log.Info().Msg("shardnode stopped")
}
