// Command enricherd runs the enhancement daemon: it builds the engine
// chain from a YAML configuration file and serves the HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/textgraph/enricher"
	"github.com/textgraph/enricher/config"
	"github.com/textgraph/enricher/engine"
	"github.com/textgraph/enricher/engine/celi"
	"github.com/textgraph/enricher/engine/localner"
	"github.com/textgraph/enricher/engine/opencalais"
	"github.com/textgraph/enricher/engine/uima"
	"github.com/textgraph/enricher/helper"
	"github.com/textgraph/enricher/web"
)

func main() {
	configPath := flag.String("config", "enricher.yaml", "path to the daemon configuration file")
	embeddingDim := flag.Int("embedding-dim", 384, "entity index embedding dimension")
	flag.Parse()

	logger := slog.New(helper.NewPrettyHandler(os.Stdout, helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: slog.LevelInfo},
	}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	engines, cleanup, err := buildEngines(cfg.Engines, logger)
	if err != nil {
		log.Fatalf("Failed to build engines: %v", err)
	}
	defer cleanup()

	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		log.Fatalf("Failed to load database configuration: %v", err)
	}

	e, err := enricher.NewEnricher(dbConfig, *embeddingDim, engines...)
	if err != nil {
		log.Fatalf("Failed to create enricher: %v", err)
	}
	defer e.Close()

	server := web.NewServer(cfg.Server.Address, cfg.Server.Token, e, logger)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Fatalf("Failed to stop server: %v", err)
	}
}

// buildEngines constructs every configured engine. The returned cleanup
// releases engine resources (the local NER session).
func buildEngines(cfg config.EnginesConfig, logger *slog.Logger) ([]engine.Engine, func(), error) {
	var engines []engine.Engine
	cleanup := func() {}

	if cfg.OpenCalais != nil {
		e, err := opencalais.New(*cfg.OpenCalais, logger)
		if err != nil {
			return nil, cleanup, err
		}
		engines = append(engines, e)
	}
	if cfg.CELI != nil {
		e, err := celi.New(*cfg.CELI, logger)
		if err != nil {
			return nil, cleanup, err
		}
		engines = append(engines, e)
	}
	if cfg.UIMA != nil {
		e, err := uima.New(*cfg.UIMA, logger)
		if err != nil {
			return nil, cleanup, err
		}
		engines = append(engines, e)
	}
	if cfg.LocalNER != nil {
		e, err := localner.New(*cfg.LocalNER, logger)
		if err != nil {
			return nil, cleanup, err
		}
		engines = append(engines, e)
		cleanup = func() { e.Close() }
	}

	return engines, cleanup, nil
}
