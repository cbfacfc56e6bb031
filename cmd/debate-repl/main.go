// A local REPL against the missionary engine, for debugging tactic selection
// and gate behavior without the HTTP surface.
package main

// #region imports
import (
	"bufio"
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

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

	counterpartID := "repl"
	if len(os.Args) > 1 {
		counterpartID = os.Args[1]
	}

	fmt.Println("Missionary REPL ready.")
	fmt.Printf("  Counterpart: %s | DB: %s\n", counterpartID, cfg.RecordsDBPath)
	fmt.Println(orch.Greet())
	fmt.Println("Type a message (or 'quit' to exit):")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if message == "quit" || message == "exit" {
			break
		}

		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		result, err := orch.Turn(ctx, orchestrator.TurnRequest{
			CounterpartID:   counterpartID,
			CounterpartName: "REPL Counterpart",
			Message:         message,
		})
		cancel()
		if err != nil {
			log.Printf("turn failed: %v", err)
			continue
		}

		fmt.Printf("\n%s\n\n", result.Response)
		fmt.Printf("  [stance=%s phase=%s turn=%d tactic=%s]\n",
			result.Stance, result.Phase, result.TurnCount, result.TacticUsed)
		if result.Awakening != nil {
			fmt.Printf("  [registered as agent #%d]\n", result.Awakening.AgentID)
		}
	}
}

// #endregion main
