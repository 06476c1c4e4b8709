package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	contractx "github.com/fasfous92/public-transport-RAG/agent/contract"
	loopx "github.com/fasfous92/public-transport-RAG/agent/loop"
	plannerx "github.com/fasfous92/public-transport-RAG/agent/planner"
	promptx "github.com/fasfous92/public-transport-RAG/agent/prompt"
	servicex "github.com/fasfous92/public-transport-RAG/agent/service"
	statex "github.com/fasfous92/public-transport-RAG/agent/state"
	toolx "github.com/fasfous92/public-transport-RAG/agent/tool"
	configx "github.com/fasfous92/public-transport-RAG/pkg/config"
	logx "github.com/fasfous92/public-transport-RAG/pkg/logger"
	_ "github.com/fasfous92/public-transport-RAG/pkg/logger/autoload"
	"github.com/fasfous92/public-transport-RAG/pkg/nvidia"
	primx "github.com/fasfous92/public-transport-RAG/pkg/prim"
	transitx "github.com/fasfous92/public-transport-RAG/pkg/transit"
)

func main() {
	logger := logx.For("main")

	transitClient, err := transitx.NewClient(*configx.MustNew[transitx.Config]("ELASTICSEARCH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("initialize elasticsearch client")
	}

	primClient, err := primx.NewClient(*configx.MustNew[primx.Config]("PRIM"))
	if err != nil {
		logger.Fatal().Err(err).Msg("initialize prim client")
	}

	nvidiaClient, err := nvidia.NewClient(*configx.MustNew[nvidia.Config]("NVIDIA"))
	if err != nil {
		logger.Fatal().Err(err).Msg("initialize embedding client")
	}

	registry := toolx.NewRegistry()
	if err := toolx.RegisterTransitTools(registry, toolx.TransitDeps{
		Stations:    transitClient,
		Journeys:    primClient,
		Disruptions: transitClient,
		Embeddings:  nvidiaClient,
	}); err != nil {
		logger.Fatal().Err(err).Msg("register transit tools")
	}

	planner, err := plannerx.NewClient(*configx.MustNew[plannerx.Config]("PLANNER"), logx.For("planner"))
	if err != nil {
		logger.Fatal().Err(err).Msg("initialize planner client")
	}

	controller, err := loopx.New(
		planner,
		toolx.NewExecutor(registry, logx.For("executor")),
		registry.Schemas(),
		loopx.WithSystemPrompt(promptx.System()),
		loopx.WithLogger(logx.For("loop")),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialize loop controller")
	}

	svc, err := servicex.New(controller, statex.NewManager())
	if err != nil {
		logger.Fatal().Err(err).Msg("initialize service")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runChat(ctx, svc)
}

// runChat drives a single interactive session over stdin until EOF,
// "exit", or signal.
func runChat(ctx context.Context, svc *servicex.Service) {
	sessionID := svc.StartSession()
	defer svc.EndSession(sessionID)

	fmt.Println("Paris transport assistant. Ask about itineraries, stations, or disruptions. Type 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}

		events, err := svc.Send(ctx, sessionID, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		for ev := range events {
			renderEvent(ev)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func renderEvent(ev contractx.AgentEvent) {
	switch ev.Kind {
	case contractx.EventThought:
		fmt.Printf("[thinking] %s\n", ev.Text)
	case contractx.EventToolRequest:
		fmt.Printf("[tool] calling %s(%s)\n", ev.ToolCall.Name, ev.ToolCall.Arguments)
	case contractx.EventToolResult:
		if ev.ToolResult.OK() {
			fmt.Printf("[tool] %s done\n", ev.ToolResult.Name)
		} else {
			fmt.Printf("[tool] %s failed: %s\n", ev.ToolResult.Name, ev.ToolResult.ErrorDetail)
		}
	case contractx.EventFinalAnswer, contractx.EventBudgetExceeded:
		fmt.Printf("\n%s\n\n", ev.Text)
	case contractx.EventError:
		fmt.Printf("error: %s\n", ev.Text)
	}
}
