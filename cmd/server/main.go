// Command server runs the public task endpoint (spec.md §6): the
// JSON-RPC 2.0 HTTP server fronting the Task Manager and Aggregator,
// wired the way control_plane/main.go wires its ServeMux.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vn6295337/Researcher-Agent/internal/aggregator"
	"github.com/vn6295337/Researcher-Agent/internal/basket/fundamentals"
	"github.com/vn6295337/Researcher-Agent/internal/basket/macro"
	"github.com/vn6295337/Researcher-Agent/internal/basket/news"
	"github.com/vn6295337/Researcher-Agent/internal/basket/sentiment"
	"github.com/vn6295337/Researcher-Agent/internal/basket/valuation"
	"github.com/vn6295337/Researcher-Agent/internal/basket/volatility"
	"github.com/vn6295337/Researcher-Agent/internal/config"
	"github.com/vn6295337/Researcher-Agent/internal/model"
	"github.com/vn6295337/Researcher-Agent/internal/task"
	"github.com/vn6295337/Researcher-Agent/internal/taskapi"
	"github.com/vn6295337/Researcher-Agent/internal/taskstore"
	"github.com/vn6295337/Researcher-Agent/internal/tickerlookup"
	"github.com/vn6295337/Researcher-Agent/internal/transport"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	store := buildTaskStore(ctx, cfg)

	childProc := transport.NewChildProcess(cfg.WorkerBinary)

	var fundamentalsTransport transport.Transport = childProc
	if cfg.UseHTTPFinancials && cfg.FinancialsHTTPURL != "" {
		fundamentalsTransport = transport.NewHTTP(cfg.FinancialsHTTPURL, time.Duration(cfg.HTTPTimeoutSec)*time.Second, childProc)
	}

	baskets := []aggregator.BasketSpec{
		{ID: fundamentals.BasketID, Group: fundamentals.Group, ToolName: "get_all_sources_fundamentals", Transport: fundamentalsTransport},
		{ID: valuation.BasketID, Group: valuation.Group, ToolName: "get_all_sources_valuation", Transport: childProc},
		{ID: volatility.BasketID, Group: volatility.Group, ToolName: "get_all_sources_volatility", Transport: childProc},
		{ID: macro.BasketID, Group: macro.Group, ToolName: "get_all_sources_macro", Transport: childProc},
		{ID: news.BasketID, Group: news.Group, ToolName: "get_all_sources_news", Transport: childProc},
		{ID: sentiment.BasketID, Group: sentiment.Group, ToolName: "get_all_sources_sentiment", Transport: childProc},
	}

	agg := aggregator.New(baskets, time.Duration(cfg.MetricDelayMS)*time.Millisecond)
	resolver := tickerlookup.NewSimple()

	runFn := func(ctx context.Context, ticker model.Ticker, sink task.EventSink, isCanceled func() bool) model.ResearchArtifact {
		return agg.Run(ctx, ticker, sinkAdapter{sink}, isCanceled)
	}

	manager := task.New(store, resolver, runFn)
	server := taskapi.NewServer(manager)

	hubCtx, cancelHub := context.WithCancel(ctx)
	defer cancelHub()
	go server.Hub().Run(hubCtx)

	mux := http.NewServeMux()
	server.Routes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("[server] financial research aggregator listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

// sinkAdapter bridges task.EventSink to aggregator.ProgressSink; the two
// interfaces are identical in shape but declared in separate packages to
// keep the aggregator independent of the task manager.
type sinkAdapter struct {
	sink task.EventSink
}

func (s sinkAdapter) Emit(e model.MetricEvent) { s.sink.Emit(e) }

func buildTaskStore(ctx context.Context, cfg config.Config) taskstore.Store {
	if cfg.TaskStore == "postgres" && cfg.PostgresDSN != "" {
		pg, err := taskstore.NewPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Printf("[server] postgres task store unavailable (%v), falling back to memory", err)
			return taskstore.NewMemory()
		}
		return pg
	}
	return taskstore.NewMemory()
}
