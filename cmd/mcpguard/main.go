// Command mcpguard replays recorded MCP guard events against a guard
// configuration and prints one decision per event as JSON Lines.
// It is an offline harness for tuning whitelists and thresholds
// against captured traffic; the engine itself performs no I/O.
//
// Event input is JSONL, one event per line:
//
//	{"type":"server_connection","context":{"server_name":"finance-tools","server_url":"https://finance.company.com/mcp"}}
//	{"type":"tools_list","context":{"server_name":"finance-tools"},"tools":[{"name":"calculate_invoice"}]}
//	{"type":"tool_invoke","context":{"server_name":"finance-tools"},"tool_name":"calculate_invoice","arguments":{"amount":5}}
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	jsonexp "github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/waftester/mcpguard/pkg/config"
	"github.com/waftester/mcpguard/pkg/guard"
	"github.com/waftester/mcpguard/pkg/guardmetrics"
)

// event is one recorded guard event.
type event struct {
	Type      string          `json:"type"`
	Context   guard.Context   `json:"context"`
	Tools     []guard.Tool    `json:"tools,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// record is one output line: the event identity plus its decision.
type record struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Server   string         `json:"server_name"`
	Decision guard.Decision `json:"decision"`
}

func main() {
	configPath := flag.String("config", "", "Guard config YAML (empty = defaults)")
	eventsPath := flag.String("events", "-", "Events JSONL file (- = stdin)")
	outputPath := flag.String("o", "", "Output file (empty = stdout)")
	eventRate := flag.Float64("rate", 0, "Max events per second (0 = unlimited)")
	metricsAddr := flag.String("metrics", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	denyExit := flag.Bool("fail-on-deny", false, "Exit non-zero if any event was denied")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	}

	engine, err := guard.New(cfg)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}

	metrics := guardmetrics.New()
	engine.InstrumentWith(metrics)
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	in := os.Stdin
	if *eventsPath != "-" {
		f, err := os.Open(*eventsPath)
		if err != nil {
			log.Fatalf("events: %v", err)
		}
		defer f.Close()
		in = f
	}

	out := io.Writer(os.Stdout)
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			log.Fatalf("output: %v", err)
		}
		defer f.Close()
		out = f
	}

	var limiter *rate.Limiter
	if *eventRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(*eventRate), 1)
	}

	denied, err := replay(ctx, engine, in, out, limiter)
	if err != nil {
		log.Fatalf("replay: %v", err)
	}
	if denied > 0 {
		log.Printf("%d event(s) denied", denied)
		if *denyExit {
			os.Exit(2)
		}
	}
}

// replay evaluates events line by line and writes decision records.
// Returns the number of denied events.
func replay(ctx context.Context, engine *guard.Engine, in io.Reader, out io.Writer, limiter *rate.Limiter) (int, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	w := bufio.NewWriter(out)
	defer w.Flush()

	denied := 0
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return denied, err
			}
		} else if err := ctx.Err(); err != nil {
			return denied, err
		}

		var ev event
		if err := jsonexp.Unmarshal(raw, &ev); err != nil {
			return denied, fmt.Errorf("line %d: %w", line, err)
		}

		decision, err := evaluate(engine, ev)
		if err != nil {
			return denied, fmt.Errorf("line %d: %w", line, err)
		}
		if decision.Blocked() {
			denied++
		}

		encoded, err := jsonexp.Marshal(record{
			ID:       uuid.NewString(),
			Type:     ev.Type,
			Server:   ev.Context.ServerName,
			Decision: decision,
		})
		if err != nil {
			return denied, err
		}
		if _, err := w.Write(append(encoded, '\n')); err != nil {
			return denied, err
		}
	}
	return denied, scanner.Err()
}

// evaluate routes one event to the matching engine entry point.
func evaluate(engine *guard.Engine, ev event) (guard.Decision, error) {
	switch ev.Type {
	case guard.PhaseServerConnection:
		return engine.EvaluateServerConnection(ev.Context), nil
	case guard.PhaseToolsList:
		return engine.EvaluateToolsList(ev.Tools, ev.Context), nil
	case guard.PhaseToolInvoke:
		return engine.EvaluateToolInvoke(ev.ToolName, ev.Arguments, ev.Context), nil
	default:
		return guard.Decision{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
}
