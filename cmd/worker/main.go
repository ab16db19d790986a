// Command worker is the basket worker child process (spec.md §4.6): a
// single binary that serves any of the six baskets over line-delimited
// JSON-RPC 2.0 on stdin/stdout, selected by --basket.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/vn6295337/Researcher-Agent/internal/basket"
	"github.com/vn6295337/Researcher-Agent/internal/basket/fundamentals"
	"github.com/vn6295337/Researcher-Agent/internal/basket/macro"
	"github.com/vn6295337/Researcher-Agent/internal/basket/news"
	"github.com/vn6295337/Researcher-Agent/internal/basket/sentiment"
	"github.com/vn6295337/Researcher-Agent/internal/basket/valuation"
	"github.com/vn6295337/Researcher-Agent/internal/basket/volatility"
	"github.com/vn6295337/Researcher-Agent/internal/breaker"
	"github.com/vn6295337/Researcher-Agent/internal/cache"
	"github.com/vn6295337/Researcher-Agent/internal/config"
	"github.com/vn6295337/Researcher-Agent/internal/fetcher"
	"github.com/vn6295337/Researcher-Agent/internal/jsonrpc"
	"github.com/vn6295337/Researcher-Agent/internal/model"
	"github.com/vn6295337/Researcher-Agent/internal/ratelimit"
)

var basketFlag string

func main() {
	root := &cobra.Command{
		Use:   "worker",
		Short: "serves one basket's tools over line-delimited JSON-RPC on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(basketFlag)
		},
	}
	root.Flags().StringVar(&basketFlag, "basket", "", "basket id: fundamentals|valuation|volatility|macro|news|sentiment")
	root.MarkFlagRequired("basket")

	if err := root.Execute(); err != nil {
		log.Fatalf("[worker] %v", err)
	}
}

func buildWorker(basketID string) (*basket.Worker, error) {
	cfg := config.Load()
	limiters := ratelimit.DefaultRegistry()
	breakers := breaker.DefaultRegistry()
	f := fetcher.New(limiters, breakers)

	switch basketID {
	case fundamentals.BasketID:
		identifierCache := cache.NewTypedCache(backendFor(cfg), "identifier")
		return fundamentals.NewWorker(f, identifierCache), nil
	case valuation.BasketID:
		return valuation.NewWorker(f), nil
	case volatility.BasketID:
		return volatility.NewWorker(f), nil
	case macro.BasketID:
		return macro.NewWorker(f), nil
	case news.BasketID:
		return news.NewWorker(f), nil
	case sentiment.BasketID:
		return sentiment.NewWorker(f), nil
	default:
		return nil, fmt.Errorf("unknown basket %q", basketID)
	}
}

func backendFor(cfg config.Config) cache.Cache {
	if cfg.CacheBackend == "redis" {
		return cache.NewRedis(cfg.RedisAddr, "", 0)
	}
	return cache.NewMemory()
}

// run speaks the initialize -> notifications/initialized -> tools/call
// handshake over stdin/stdout, the shape internal/transport/childprocess.go
// drives from the aggregator side.
func run(basketID string) error {
	w, err := buildWorker(basketID)
	if err != nil {
		return err
	}

	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	writeLine := func(v any) {
		b, _ := json.Marshal(v)
		out.Write(b)
		out.Write([]byte("\n"))
		out.Flush()
	}

	for in.Scan() {
		line := in.Bytes()
		if len(line) == 0 {
			continue
		}
		var req jsonrpc.Request
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}

		switch req.Method {
		case "initialize":
			writeLine(jsonrpc.Response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{"protocolVersion":"2024-11-05"}`)})
		case "notifications/initialized":
			// no response expected
		case "tools/list":
			names := make([]string, 0, len(w.Tools))
			for name := range w.Tools {
				names = append(names, name)
			}
			result, _ := json.Marshal(map[string]any{"tools": names})
			writeLine(jsonrpc.Response{JSONRPC: "2.0", ID: req.ID, Result: result})
		case "tools/call":
			handleToolCall(w, req, writeLine)
		default:
			writeLine(jsonrpc.Response{JSONRPC: "2.0", ID: req.ID, Error: &jsonrpc.Error{
				Code: jsonrpc.CodeMethodNotFound, Message: "method not found",
			}})
		}
	}
	return in.Err()
}

func handleToolCall(w *basket.Worker, req jsonrpc.Request, writeLine func(any)) {
	var params jsonrpc.ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeLine(jsonrpc.Response{JSONRPC: "2.0", ID: req.ID, Error: &jsonrpc.Error{
			Code: jsonrpc.CodeInvalidParams, Message: "invalid params",
		}})
		return
	}

	ticker := model.Ticker{}
	if sym, ok := params.Arguments["ticker"].(string); ok {
		ticker.Symbol = sym
	}
	argsJSON, _ := json.Marshal(params.Arguments)

	result, err := w.Call(context.Background(), params.Name, ticker, argsJSON)
	if err != nil {
		writeLine(jsonrpc.Response{JSONRPC: "2.0", ID: req.ID, Error: &jsonrpc.Error{
			Code: jsonrpc.CodeMethodNotFound, Message: err.Error(),
		}})
		return
	}

	payload, _ := json.Marshal(result)
	toolResult := jsonrpc.ToolCallResult{
		Content: []jsonrpc.ContentPart{{Type: "text", Text: string(payload)}},
		IsError: result.Error != "",
	}
	b, _ := json.Marshal(toolResult)
	writeLine(jsonrpc.Response{JSONRPC: "2.0", ID: req.ID, Result: b})
}
