// Command orchestrator is a CLI entrypoint wiring the full graph engine
// (mirrors the teacher's cmd/demo and example/cmd/assistant): it reads
// environment configuration, assembles stores/analyzers/workers, and
// exposes invoke/stream over stdin for local smoke testing.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/excelencia-digital/orquestador/internal/agentfactory"
	"github.com/excelencia-digital/orquestador/internal/builtinagents"
	"github.com/excelencia-digital/orquestador/internal/builtinagents/credit"
	"github.com/excelencia-digital/orquestador/internal/builtinagents/ecommerce"
	"github.com/excelencia-digital/orquestador/internal/convctx/inmem"
	"github.com/excelencia-digital/orquestador/internal/engine"
	engineinmem "github.com/excelencia-digital/orquestador/internal/engine/inmem"
	"github.com/excelencia-digital/orquestador/internal/intent"
	"github.com/excelencia-digital/orquestador/internal/intent/analyzer"
	"github.com/excelencia-digital/orquestador/internal/intent/analyzer/keywordanalyzer"
	"github.com/excelencia-digital/orquestador/internal/intent/analyzer/llmanalyzer"
	"github.com/excelencia-digital/orquestador/internal/intent/analyzer/nlpanalyzer"
	"github.com/excelencia-digital/orquestador/internal/intent/router"
	"github.com/excelencia-digital/orquestador/internal/llm"
	"github.com/excelencia-digital/orquestador/internal/llm/anthropic"
	"github.com/excelencia-digital/orquestador/internal/supervisor"
	"github.com/excelencia-digital/orquestador/internal/telemetry"
	"github.com/excelencia-digital/orquestador/internal/tenant"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := telemetry.NewNoopLogger()
	metrics := telemetry.NewNoopMetrics()
	if os.Getenv("ORCHESTRATOR_CLUE_LOGGING") == "true" {
		logger = telemetry.NewClueLogger()
		metrics = telemetry.NewClueMetrics()
	}

	deps := buildDeps(logger, metrics)
	eng := engineinmem.New(deps, nil)

	mode := flagOrDefault("stream")
	runREPL(ctx, eng, mode, logger)
}

func flagOrDefault(def string) string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	return def
}

func buildDeps(logger telemetry.Logger, metrics telemetry.Metrics) engine.Deps {
	store := inmem.New()

	cache := intent.NewCache(intent.DefaultTTL, intent.DefaultCapacity)

	var llmClient llm.Client
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		model := os.Getenv("ANTHROPIC_MODEL")
		if model == "" {
			model = "claude-3-5-sonnet-latest"
		}
		c, err := anthropic.NewFromAPIKey(apiKey, model)
		if err == nil {
			llmClient = c
		}
	}

	var llmAnalyzer analyzer.Analyzer
	if llmClient != nil {
		llmAnalyzer = llmanalyzer.New(llmClient, cache, logger, metrics)
	}
	nlpAnalyzer := nlpanalyzer.New(nil, nil, nil)
	keywordAnalyzer := keywordanalyzer.New(keywordanalyzer.DefaultKeywords)

	intentRouter := router.New(llmAnalyzer, nlpAnalyzer, keywordAnalyzer, logger, metrics)

	factory := agentfactory.New(logger, metrics)
	builtinagents.RegisterDefaults(factory)
	credit.Register(factory)
	ecommerce.Register(factory)

	enhancer := supervisor.NewEnhancer(llmClient)
	sup := supervisor.New(enhancer)

	globalEnabled := map[string]struct{}{
		builtinagents.GreetingAgentKey: {},
		builtinagents.FallbackAgentKey: {},
		builtinagents.FarewellAgentKey: {},
		credit.AgentKey:                {},
		ecommerce.AgentKey:             {},
	}

	return engine.Deps{
		ContextStore:        store,
		Tenants:             staticTenantResolver{},
		Router:              intentRouter,
		Factory:             factory,
		Supervisor:          sup,
		Checkpoints:         nil,
		GlobalEnabledAgents: globalEnabled,
		FallbackAgentKey:    builtinagents.FallbackAgentKey,
		Logger:              logger,
		Metrics:             metrics,
	}
}

// staticTenantResolver is the zero-configuration tenant source used when no
// Mongo-backed tenant.mongostore.Loader is wired (local/dev mode): every
// organization gets the same fixed registry of builtin agents enabled.
type staticTenantResolver struct{}

func (staticTenantResolver) Resolve(_ context.Context, organizationID, bypassTargetAgent string) (*tenant.Registry, error) {
	agents := map[string]*tenant.AgentConfig{
		builtinagents.GreetingAgentKey: {
			AgentKey: builtinagents.GreetingAgentKey, Enabled: true, Priority: 100,
			IntentPatterns: []tenant.IntentPattern{{Pattern: "greeting", Weight: 1}},
			Keywords:       map[string]struct{}{"hola": {}, "buenas": {}},
		},
		builtinagents.FarewellAgentKey: {
			AgentKey: builtinagents.FarewellAgentKey, Enabled: true, Priority: 90,
			IntentPatterns: []tenant.IntentPattern{{Pattern: "farewell", Weight: 1}},
			Keywords:       map[string]struct{}{"adios": {}, "chau": {}},
		},
		builtinagents.FallbackAgentKey: {
			AgentKey: builtinagents.FallbackAgentKey, Enabled: true, Priority: 0,
			IntentPatterns: []tenant.IntentPattern{{Pattern: intent.FallbackIntent, Weight: 1}},
		},
		credit.AgentKey: {
			AgentKey: credit.AgentKey, Enabled: true, Priority: 50,
			IntentPatterns: []tenant.IntentPattern{{Pattern: "credit_inquiry", Weight: 1}},
			Keywords:       map[string]struct{}{"saldo": {}, "pago": {}},
		},
		ecommerce.AgentKey: {
			AgentKey: ecommerce.AgentKey, Enabled: true, Priority: 50,
			IntentPatterns: []tenant.IntentPattern{{Pattern: "product_inquiry", Weight: 1}},
			Keywords:       map[string]struct{}{"producto": {}, "pedido": {}},
		},
	}
	return tenant.NewRegistry(organizationID, agents, nil, nil, bypassTargetAgent), nil
}

func runREPL(ctx context.Context, eng *engineinmem.Engine, mode string, logger telemetry.Logger) {
	fmt.Println("orchestrator ready — type a message, Ctrl-D to exit")
	scanner := bufio.NewScanner(os.Stdin)
	convID := uuid.NewString()

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}

		turnCtx, cancel := context.WithTimeout(ctx, engine.DefaultTurnBudget+5*time.Second)
		req := engineRequest(convID, message)

		if mode == "stream" {
			events, err := eng.Stream(turnCtx, req)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				cancel()
				continue
			}
			for ev := range events {
				printEvent(ev)
			}
		} else {
			result, err := eng.Invoke(turnCtx, req)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				cancel()
				continue
			}
			fmt.Println(result.Response)
		}
		cancel()

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func engineRequest(conversationID, message string) engine.InvokeRequest {
	return engine.InvokeRequest{
		Message:        message,
		ConversationID: conversationID,
		UserID:         "cli-user",
		OrganizationID: envOrDefault("ORCHESTRATOR_ORG_ID", "demo-org"),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printEvent(ev engine.StreamEvent) {
	switch ev.Type {
	case engine.StreamEventProgress:
		fmt.Printf("[step %d] %s: %s\n", ev.StepCount, ev.CurrentNode, ev.Preview)
	case engine.StreamEventFinal:
		b, _ := json.Marshal(ev.Data)
		fmt.Println(string(b))
	case engine.StreamEventError:
		fmt.Fprintln(os.Stderr, "error:", ev.Err)
	}
}
