package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"chuchu.ai/internal/persistence/indexdb"
	"chuchu.ai/internal/persistence/ticklog"
	"chuchu.ai/internal/sim/game"
	"chuchu.ai/internal/sim/levelpack"
	"chuchu.ai/internal/sim/tuning"
	"chuchu.ai/internal/transport/observer"
	"chuchu.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		seed       = flag.Int64("seed", 1337, "simulation seed")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		levelsDir  = flag.String("levels", "", "level pack directory (default: <configs>/levels)")
		schemaPath = flag.String("level_schema", "./schemas/level.schema.json", "level document schema")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (tick/results read model)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	ld := strings.TrimSpace(*levelsDir)
	if ld == "" {
		ld = filepath.Join(*configDir, "levels")
	}
	pack, err := levelpack.Load(ld, *schemaPath)
	if err != nil {
		logger.Fatalf("load level pack: %v", err)
	}
	logger.Printf("loaded %d levels from %s", pack.Len(), ld)

	g, err := game.New(tune, pack, *seed)
	if err != nil {
		logger.Fatalf("game: %v", err)
	}
	g.SetLogger(logger)

	_ = os.MkdirAll(*dataDir, 0o755)
	tickLog := ticklog.NewWriter(*dataDir)
	defer tickLog.Close()

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
	}
	g.SetTickLogger(multiTickLogger{a: tickLog, b: idx})
	if idx != nil {
		g.SetResultSink(idx)
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := g.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("game stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := g.Metrics()
		tick := g.CurrentTick()
		if m.Tick != 0 {
			tick = m.Tick
		}

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP chuchu_game_tick Current game tick.\n")
		fmt.Fprintf(rw, "# TYPE chuchu_game_tick gauge\n")
		fmt.Fprintf(rw, "chuchu_game_tick %d\n", tick)

		fmt.Fprintf(rw, "# HELP chuchu_game_level Current level index.\n")
		fmt.Fprintf(rw, "# TYPE chuchu_game_level gauge\n")
		fmt.Fprintf(rw, "chuchu_game_level %d\n", m.Level)

		fmt.Fprintf(rw, "# HELP chuchu_game_players Connected players.\n")
		fmt.Fprintf(rw, "# TYPE chuchu_game_players gauge\n")
		fmt.Fprintf(rw, "chuchu_game_players %d\n", m.Players)

		fmt.Fprintf(rw, "# HELP chuchu_game_observers Connected observers.\n")
		fmt.Fprintf(rw, "# TYPE chuchu_game_observers gauge\n")
		fmt.Fprintf(rw, "chuchu_game_observers %d\n", m.Observers)

		fmt.Fprintf(rw, "# HELP chuchu_game_agents Agents in flight on the board.\n")
		fmt.Fprintf(rw, "# TYPE chuchu_game_agents gauge\n")
		fmt.Fprintf(rw, "chuchu_game_agents %d\n", m.Agents)

		fmt.Fprintf(rw, "# HELP chuchu_game_score Cumulative consumed agents.\n")
		fmt.Fprintf(rw, "# TYPE chuchu_game_score counter\n")
		fmt.Fprintf(rw, "chuchu_game_score %d\n", m.Score)

		fmt.Fprintf(rw, "# HELP chuchu_game_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE chuchu_game_queue_depth gauge\n")
		fmt.Fprintf(rw, "chuchu_game_queue_depth{queue=%q} %d\n", "inbox", m.QueueDepths.Inbox)
		fmt.Fprintf(rw, "chuchu_game_queue_depth{queue=%q} %d\n", "join", m.QueueDepths.Join)
		fmt.Fprintf(rw, "chuchu_game_queue_depth{queue=%q} %d\n", "leave", m.QueueDepths.Leave)

		fmt.Fprintf(rw, "# HELP chuchu_game_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE chuchu_game_step_ms gauge\n")
		fmt.Fprintf(rw, "chuchu_game_step_ms %.3f\n", m.StepMS)
	})

	enableAdminHTTP := envBool("CHUCHU_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("CHUCHU_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints (do not affect simulation determinism).
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				Tick    uint64       `json:"tick"`
				Metrics game.Metrics `json:"metrics"`
			}{
				Tick:    g.CurrentTick(),
				Metrics: g.Metrics(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})

		obsSrv := observer.NewServer(g, logger)
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else {
		logger.Printf("admin endpoints disabled (CHUCHU_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(g, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func envBool(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

type multiTickLogger struct {
	a game.TickLogger
	b game.TickLogger
}

func (m multiTickLogger) WriteTick(entry game.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}
