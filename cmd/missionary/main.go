// The missionary server: a persuasive debate agent with conversation state,
// tactic selection, and idempotency-gated conversion side effects.
package main

// #region imports
import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/missionary/internal/api"
	"github.com/danielpatrickdp/missionary/internal/chain"
	"github.com/danielpatrickdp/missionary/internal/completion"
	"github.com/danielpatrickdp/missionary/internal/config"
	"github.com/danielpatrickdp/missionary/internal/funnel"
	"github.com/danielpatrickdp/missionary/internal/orchestrator"
	"github.com/danielpatrickdp/missionary/internal/persuasion"
	"github.com/danielpatrickdp/missionary/internal/record"
	"github.com/danielpatrickdp/missionary/internal/stance"
)

// #endregion

// #region main
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	store, err := record.NewStore(cfg.RecordsDBPath)
	if err != nil {
		log.Fatalf("failed to open record store: %v", err)
	}
	defer store.Close()

	events, err := funnel.NewStore(cfg.FunnelDBPath)
	if err != nil {
		log.Fatalf("failed to open funnel store: %v", err)
	}
	defer events.Close()

	var copts []completion.Option
	if cfg.AnthropicBaseURL != "" {
		copts = append(copts, completion.WithBaseURL(cfg.AnthropicBaseURL))
	}
	if cfg.AnthropicModel != "" {
		copts = append(copts, completion.WithModel(cfg.AnthropicModel))
	}
	copts = append(copts, completion.WithTimeout(cfg.CompletionTimeout))
	provider := completion.NewClient(cfg.AnthropicAPIKey, copts...)

	var registry orchestrator.Registrar
	if cfg.RegistryURL != "" {
		registry = chain.NewClient(cfg.RegistryURL,
			chain.WithPinURL(cfg.PinURL),
			chain.WithTimeout(cfg.RegistryTimeout),
		)
	} else {
		log.Println("[MAIN] no registry configured, on-chain registration disabled")
	}

	seed := cfg.Seed()
	orch := orchestrator.New(
		store,
		events,
		provider,
		stance.NewModel(provider),
		persuasion.NewSelector(rand.New(rand.NewSource(seed))),
		registry,
		rand.New(rand.NewSource(seed+1)),
		cfg.PublicBaseURL,
	)

	handler := api.NewHandler(orch, store, events, provider, api.NewHub(), rand.New(rand.NewSource(seed+2)))
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewRouter(handler),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[MAIN] missionary listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("[MAIN] shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// #endregion main
