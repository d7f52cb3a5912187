// Command demo wires every tick-engine collaborator together end to end:
// a durable SQLite log, a persistent store, a two-agent component tree, a
// fake executor standing in for a real LLM/tool backend, and an engine
// driven to idle. It prints each persisted frame and the final state
// snapshot, mirroring the teacher's CLI-demo style of a single main()
// that exercises the whole stack rather than a long-running server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tickforge/orchestra/durablelog"
	"github.com/tickforge/orchestra/engine"
	"github.com/tickforge/orchestra/executor"
	"github.com/tickforge/orchestra/internal/config"
	"github.com/tickforge/orchestra/monitoring"
	"github.com/tickforge/orchestra/observability"
	"github.com/tickforge/orchestra/reconcile"
	"github.com/tickforge/orchestra/state"
)

// researchComponent renders a two-step research pipeline: a "gather" agent
// runs first; once its milestone is recorded, a "summarize" agent runs and
// completes the execution. Both agents sit directly under one phase; there
// is no plan stage and no step node.
func researchComponent(ctx *reconcile.RenderContext) reconcile.Element {
	milestone, _ := ctx.Snapshot().Get("milestone")

	children := []reconcile.Element{
		reconcile.Elem("agent", map[string]interface{}{
			"model":  "demo-model",
			"prompt": "gather background on the topic",
			"on_finished": engine.OnFinished(func(wq executor.WriteQueuer, result executor.Result) {
				wq.Enqueue("milestone", "gathered", "gather.on_finished", "agent")
			}),
		}, reconcile.TextElement("gather")),
	}

	if milestone == "gathered" {
		children = append(children, reconcile.Elem("agent", map[string]interface{}{
			"model":  "demo-model",
			"prompt": "summarize the gathered findings",
			"on_finished": engine.OnFinished(func(wq executor.WriteQueuer, result executor.Result) {
				wq.Enqueue("milestone", "summarized", "summarize.on_finished", "agent")
			}),
		}, reconcile.TextElement("summarize")))
	}

	return reconcile.Elem("phase", map[string]interface{}{"name": "research"}, children...)
}

// demoExecutor stands in for a real LLM/tool backend: it always succeeds and
// echoes the dispatched node's prompt, so the demo is deterministic and
// requires no network access.
func demoExecutor() executor.Executor {
	return executor.Func(func(_ context.Context, req executor.Request) executor.Result {
		prompt, _ := req.Input["prompt"].(string)
		return executor.Result{Output: fmt.Sprintf("ok: %s", prompt)}
	})
}

func main() {
	dbPath := flag.String("db", "", "SQLite database path (defaults to an in-memory database)")
	verbose := flag.Bool("verbose", false, "include stack traces in reported faults")
	flag.Parse()

	cfg := config.Default()
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	path := cfg.DBPath
	if *dbPath == "" {
		path = ":memory:"
	}
	db, err := durablelog.Open(path)
	if err != nil {
		log.Fatalf("open durable log: %v", err)
	}
	defer db.Close()

	persistent, err := state.NewPersistentStore(db)
	if err != nil {
		log.Fatalf("load persistent store: %v", err)
	}
	dlog := durablelog.New(db)

	observability.SetErrorReporter(observability.NewConsoleReporter(*verbose))

	eng, err := engine.New(engine.Config{
		Name:       "research-demo",
		Source:     "demo://research",
		Root:       reconcile.ComponentFunc(researchComponent),
		Volatile:   state.NewStore(nil),
		Persistent: persistent,
		Log:        dlog,
		Executor:   demoExecutor(),
		Metrics:    monitoring.NoOpMetrics{},
		Reporter:   observability.GetErrorReporter(),
	})
	if err != nil {
		log.Fatalf("construct engine: %v", err)
	}

	fmt.Printf("execution %s attached; ticking until idle\n\n", eng.ExecutionID())

	ctx := context.Background()
	result, err := eng.RunUntilIdle(ctx)
	if err != nil {
		log.Fatalf("run until idle: %v", err)
	}
	fmt.Printf("done after %d frames (terminated: %q)\n\n", result.FrameSequence, result.TerminationReason)

	frames, err := dlog.Frames(eng.ExecutionID())
	if err != nil {
		log.Fatalf("read frames: %v", err)
	}
	for _, f := range frames {
		fmt.Printf("--- frame %d ---\n%s\n", f.SequenceNumber, f.Content)
	}

	fmt.Println("--- final state ---")
	for k, v := range persistent.Snapshot().All() {
		fmt.Printf("%s = %v\n", k, v)
	}

	os.Exit(0)
}
