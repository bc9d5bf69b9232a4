package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chuchu.ai/internal/persistence/indexdb"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "results":
			resultsCmd(os.Args[2:])
			return
		case "ticks":
			ticksCmd(os.Args[2:])
			return
		case "digest":
			digestCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin {results|ticks|digest|state} [flags]")
	os.Exit(2)
}

func openQuery(dataDir, dbPath string) *indexdb.Query {
	path := strings.TrimSpace(dbPath)
	if path == "" {
		path = filepath.Join(dataDir, "index.db")
	}
	q, err := indexdb.OpenQuery(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return q
}

func resultsCmd(args []string) {
	fs := flag.NewFlagSet("results", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := openQuery(*dataDir, *dbPath)
	defer q.Close()

	results, err := q.Results(*limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, r := range results {
		_ = enc.Encode(r)
	}
}

func ticksCmd(args []string) {
	fs := flag.NewFlagSet("ticks", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	_ = fs.Parse(args)

	q := openQuery(*dataDir, *dbPath)
	defer q.Close()

	stats, err := q.TickStats()
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	_ = json.NewEncoder(os.Stdout).Encode(stats)
}

func digestCmd(args []string) {
	fs := flag.NewFlagSet("digest", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	tick := fs.Uint64("tick", 0, "tick to look up")
	_ = fs.Parse(args)

	q := openQuery(*dataDir, *dbPath)
	defer q.Close()

	digest, err := q.DigestAt(*tick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	fmt.Println(digest)
}
