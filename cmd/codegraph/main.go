// Command codegraph builds and queries a persistent semantic graph of a
// source tree: init a project, index or sync it, and query the result
// from the shell, a one-shot lookup, or a long-lived MCP tool server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codegraph/codegraph/internal/config"
	"github.com/codegraph/codegraph/internal/contextbuild"
	"github.com/codegraph/codegraph/internal/extract"
	"github.com/codegraph/codegraph/internal/mcptools"
	"github.com/codegraph/codegraph/internal/store"
	"github.com/codegraph/codegraph/internal/sync"
)

// version is set by the linker at build time.
var version = "dev"

// exitConfigOrIO and exitCorrupt are the CLI's non-zero exit codes: 1 for
// a configuration or I/O failure, 2 for a detected store corruption.
const (
	exitConfigOrIO = 1
	exitCorrupt    = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return exitConfigOrIO
	}

	verb, rest := args[0], args[1:]
	ctx := context.Background()

	var err error
	switch verb {
	case "init":
		err = runInit(rest)
	case "index":
		err = runIndex(ctx, rest, true)
	case "sync":
		err = runIndex(ctx, rest, false)
	case "status":
		err = runStatus(ctx, rest)
	case "query":
		err = runQuery(ctx, rest)
	case "context":
		err = runContext(ctx, rest)
	case "serve":
		err = runServe(ctx, rest)
	case "version", "--version":
		fmt.Println(version)
		return 0
	default:
		printUsage()
		return exitConfigOrIO
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, store.ErrCorrupt) {
			return exitCorrupt
		}
		return exitConfigOrIO
	}
	return 0
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: codegraph <command> [path] [flags]

commands:
  init [path]                 create .codegraph/config.json for a project
  index [path] [--force]      perform a full index (sync against an empty store)
  sync [path]                 incrementally sync the graph with the source tree
  status [path] [--json]      report graph population statistics
  query <term> [--path] [--limit N]   search indexed symbols
  context <task> [--path]     gather symbols relevant to a task
  serve [--path]              run the MCP tool server on stdio`)
}

func resolveRoot(positional []string) (string, error) {
	root := "."
	if len(positional) > 0 {
		root = positional[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving project root: %w", err)
	}
	return abs, nil
}

func openProjectStore(root string) (*config.Config, store.Store, error) {
	cfg, err := config.Load(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("project not initialized: run `codegraph init %s` first", root)
		}
		return nil, nil, err
	}
	s, err := store.Open(config.DatabasePath(root))
	if err != nil {
		return nil, nil, err
	}
	if err := s.InitSchema(context.Background()); err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("initialize schema: %w", err)
	}
	return cfg, s, nil
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	root, err := resolveRoot(fs.Args())
	if err != nil {
		return err
	}

	if _, err := os.Stat(config.Dir(root)); err == nil {
		return fmt.Errorf("%s already exists", config.Dir(root))
	}

	cfg := config.Default(root)
	if err := config.Save(root, cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	s, err := store.Open(config.DatabasePath(root))
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	defer s.Close()
	if err := s.InitSchema(context.Background()); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}

	fmt.Printf("initialized codegraph project at %s\n", config.Dir(root))
	return nil
}

func runIndex(ctx context.Context, args []string, full bool) error {
	name := "sync"
	if full {
		name = "index"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	force := fs.Bool("force", false, "re-index every file even if its content hash is unchanged")
	if err := fs.Parse(args); err != nil {
		return err
	}
	root, err := resolveRoot(fs.Args())
	if err != nil {
		return err
	}

	cfg, s, err := openProjectStore(root)
	if err != nil {
		return err
	}
	defer s.Close()

	if full || *force {
		files, err := s.ListFiles(ctx)
		if err != nil {
			return fmt.Errorf("list files before full index: %w", err)
		}
		for _, fr := range files {
			if err := s.DeleteFile(ctx, fr.Path); err != nil {
				return fmt.Errorf("clear %s before full index: %w", fr.Path, err)
			}
		}
	}

	orchestrator := sync.New(s, extract.Default())
	report, err := orchestrator.Run(ctx, root, cfg)
	if err != nil {
		return fmt.Errorf("run sync: %w", err)
	}

	fmt.Printf("new: %d, dirty: %d, removed: %d, resolved: %d, unresolved: %d\n",
		len(report.New), len(report.Dirty), len(report.Removed), report.Resolved, report.Unresolved)
	for _, e := range report.Errors {
		fmt.Fprintf(os.Stderr, "warning: %s\n", e)
	}
	return nil
}

func runStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print statistics as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	root, err := resolveRoot(fs.Args())
	if err != nil {
		return err
	}

	_, s, err := openProjectStore(root)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Printf("nodes:      %d\n", stats.NodeCount)
	fmt.Printf("edges:      %d\n", stats.EdgeCount)
	fmt.Printf("files:      %d\n", stats.FileCount)
	fmt.Printf("unresolved: %d\n", stats.UnresolvedCount)
	fmt.Printf("database:   %d bytes\n", stats.DatabaseBytes)
	for kind, count := range stats.NodesByKind {
		fmt.Printf("  %-16s %d\n", kind, count)
	}
	return nil
}

func runQuery(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	path := fs.String("path", "", "restrict results to this file path prefix")
	limit := fs.Int("limit", 20, "maximum number of results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	positional := fs.Args()
	if len(positional) == 0 {
		return fmt.Errorf("query requires a search term")
	}
	term := positional[0]
	root, err := resolveRoot(positional[1:])
	if err != nil {
		return err
	}

	_, s, err := openProjectStore(root)
	if err != nil {
		return err
	}
	defer s.Close()

	results, err := s.SearchNodes(ctx, term, *limit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	for _, r := range results {
		if *path != "" && (len(r.Node.FilePath) < len(*path) || r.Node.FilePath[:len(*path)] != *path) {
			continue
		}
		fmt.Printf("%.2f  %s  %s  %s:%d\n", r.Score, r.Node.Kind, r.Node.QualifiedName, r.Node.FilePath, r.Node.StartLine)
	}
	return nil
}

func runContext(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("context", flag.ContinueOnError)
	path := fs.String("path", "", "restrict search to this file path prefix")
	if err := fs.Parse(args); err != nil {
		return err
	}
	positional := fs.Args()
	if len(positional) == 0 {
		return fmt.Errorf("context requires a task description")
	}
	task := positional[0]
	root, err := resolveRoot(positional[1:])
	if err != nil {
		return err
	}

	_, s, err := openProjectStore(root)
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := contextbuild.Build(ctx, s, task, *path, 10)
	if err != nil {
		return err
	}
	fmt.Print(result.Summary)
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	root, err := resolveRoot(fs.Args())
	if err != nil {
		return err
	}

	_, s, err := openProjectStore(root)
	if err != nil {
		return err
	}
	defer s.Close()

	svc := mcptools.NewService(s)
	server := mcptools.NewServer(svc)

	fmt.Fprintf(os.Stderr, "codegraph MCP server v%s starting on stdio (project: %s)\n", version, root)
	err = mcptools.RunStdio(ctx, server)
	fmt.Fprintf(os.Stderr, "codegraph MCP server stopped\n")
	return err
}
