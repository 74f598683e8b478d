// Package cmd provides CLI command implementations for CodeSlim.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/Asthestarsfalll/codeslim-go/internal/analysis"
	"github.com/Asthestarsfalll/codeslim-go/internal/codegen"
	"github.com/Asthestarsfalll/codeslim-go/internal/corpus"
	"github.com/Asthestarsfalll/codeslim-go/internal/rewrite"
	"github.com/Asthestarsfalll/codeslim-go/internal/storage"
	"github.com/Asthestarsfalll/codeslim-go/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// AnalyzeCmd indexes a Python corpus from its entry files.
type AnalyzeCmd struct {
	Entries []string `arg:"" help:"Entry files, relative to the corpus root"`
	Root    string   `default:"." help:"Corpus root directory"`
}

// Run executes the analyze command.
func (c *AnalyzeCmd) Run() error {
	ctx := context.Background()
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("accessing %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	color.Green("Analyzing %s", root)

	start := time.Now()
	graph, analyzer, err := analyzeCorpus(root, c.Entries)
	if err != nil {
		return err
	}
	printWarnings(graph.Warnings())

	if err := saveIndex(ctx, root, c.Entries, graph, analyzer); err != nil {
		return err
	}

	color.Green("\n✓ Analysis complete")
	fmt.Printf("  Files:         %d\n", graph.UnitCount())
	fmt.Printf("  Definitions:   %d\n", graph.DefCount())
	fmt.Printf("  Import edges:  %d\n", graph.EdgeCount())
	fmt.Printf("  Duration:      %.2fs\n", time.Since(start).Seconds())

	return nil
}

// SlimCmd emits a slimmed copy of the corpus.
type SlimCmd struct {
	Entries []string `arg:"" help:"Entry files, relative to the corpus root"`
	Root    string   `default:"." help:"Corpus root directory"`
	Output  string   `short:"o" default:"slimmed" help:"Output directory"`
	Mode    string   `default:"segment" enum:"file,segment" help:"Output mode (file|segment)"`
	Map     []string `help:"Import remapping, old.module=new_module"`
	Merge   string   `default:"none" help:"Class merge policy (none|eliminate|keepone)"`
	Force   bool     `short:"f" help:"Overwrite existing output files"`
	Watch   bool     `short:"w" help:"Re-slim when corpus files change"`
	NoIndex bool     `help:"Skip writing the analysis index"`
}

// Run executes the slim command.
func (c *SlimCmd) Run() error {
	ctx := context.Background()
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}

	policy, err := rewrite.ParseMergePolicy(c.Merge)
	if err != nil {
		return err
	}

	mapper, err := parseMapper(c.Map)
	if err != nil {
		return err
	}

	outDir, err := filepath.Abs(c.Output)
	if err != nil {
		return fmt.Errorf("resolving output: %w", err)
	}

	opts := codegen.Options{
		Mapper: mapper,
		Force:  c.Force,
		Merge:  policy,
	}

	if err := c.slimOnce(ctx, root, outDir, opts); err != nil {
		return err
	}
	if !c.Watch {
		return nil
	}

	// Watch mode: later passes overwrite the first pass's output.
	opts.Force = true

	fmt.Printf("\nWatching %s for changes (Ctrl+C to stop)\n", root)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-osSignalChannel()
		fmt.Println("\nStopping watch mode...")
		cancel()
	}()

	err = corpus.Watch(watchCtx, root, func(changed []string) {
		fmt.Printf("Changed: %s\n", strings.Join(changed, ", "))
		if err := c.slimOnce(watchCtx, root, outDir, opts); err != nil {
			color.Red("Re-slim failed: %v", err)
		}
	})
	if err != nil && err != context.Canceled {
		return fmt.Errorf("watch error: %w", err)
	}
	return nil
}

func (c *SlimCmd) slimOnce(ctx context.Context, root, outDir string, opts codegen.Options) error {
	graph, analyzer, err := analyzeCorpus(root, c.Entries)
	if err != nil {
		return err
	}
	printWarnings(graph.Warnings())

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var result *codegen.Result
	switch c.Mode {
	case "file":
		gen, err := codegen.NewFileLevel(graph, outDir, opts)
		if err != nil {
			return err
		}
		result, err = gen.Generate()
		if err != nil {
			return err
		}
	case "segment":
		result, err = codegen.NewSegment(graph, outDir, opts).Generate()
		if err != nil {
			return err
		}
	}

	failed := 0
	for _, fr := range result.Files {
		printWarnings(fr.Warnings)
		if fr.Err != nil {
			color.Red("✗ %s: %v", fr.RelPath, fr.Err)
			failed++
			continue
		}
		fmt.Printf("  %s -> %s\n", fr.RelPath, fr.Output)
	}

	if !c.NoIndex {
		if err := saveIndex(ctx, root, c.Entries, graph, analyzer); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(result.Files))
	}
	color.Green("\n✓ Wrote %d files to %s", len(result.Files), outDir)
	return nil
}

// DeadCodeCmd lists every prunable definition in the analyzed corpus.
type DeadCodeCmd struct{}

// Run executes the dead-code command.
func (c *DeadCodeCmd) Run() error {
	store, err := loadStorage(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	dead, err := store.DeadDefs(ctx)
	if err != nil {
		return fmt.Errorf("retrieving dead code: %w", err)
	}

	fmt.Println("## Dead Code Report")

	if len(dead) == 0 {
		fmt.Println("✅ No prunable definitions found!")
		fmt.Println()
		fmt.Println("Every top-level definition is either:")
		fmt.Println("- Imported by another corpus file")
		fmt.Println("- Referenced within its own file")
		fmt.Println("- A dunder protocol hook")
		return nil
	}

	fmt.Printf("⚠️ Found %d prunable definition(s)\n\n", len(dead))

	byFile := make(map[string][]storage.DefRecord)
	var order []string
	for _, def := range dead {
		if _, ok := byFile[def.File]; !ok {
			order = append(order, def.File)
		}
		byFile[def.File] = append(byFile[def.File], def)
	}

	for _, file := range order {
		defs := byFile[file]
		fmt.Printf("### %s (%d)\n", file, len(defs))
		for _, def := range defs {
			fmt.Printf("  - %s (%s) at line %d\n", def.Name, def.Kind, def.Line)
		}
		fmt.Println()
	}

	fmt.Println("Next: run `codeslim slim --mode segment` to emit the corpus without them.")
	return nil
}

// GraphCmd prints the stored corpus graph.
type GraphCmd struct{}

// Run executes the graph command.
func (c *GraphCmd) Run() error {
	store, err := loadStorage(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	units, err := store.Units(ctx)
	if err != nil {
		return err
	}

	fmt.Println("## Corpus Graph")
	fmt.Printf("%d files, %d definitions (%d live), %d import edges\n\n",
		stats.Units, stats.Defs, stats.LiveDefs, stats.Edges)

	for _, unit := range units {
		marker := ""
		if unit.IsEntry {
			marker = " (entry)"
		}
		fmt.Printf("### %s%s [%s]\n", unit.RelPath, marker, unit.Module)

		defs, err := store.DefsByFile(ctx, unit.RelPath)
		if err != nil {
			return err
		}
		for _, def := range defs {
			liveness := "prunable"
			if def.Live {
				liveness = "live"
			}
			fmt.Printf("  %s %s (line %d, %s)\n", def.Kind, def.Name, def.Line, liveness)
		}

		edges, err := store.Importers(ctx, unit.RelPath)
		if err != nil {
			return err
		}
		for _, edge := range edges {
			fmt.Printf("  <- imported by %s\n", edge.From)
		}
		fmt.Println()
	}

	return nil
}

// ImportersCmd shows which files import a given corpus file.
type ImportersCmd struct {
	File string `arg:"" help:"File path relative to the corpus root"`
}

// Run executes the importers command.
func (c *ImportersCmd) Run() error {
	store, err := loadStorage(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	edges, err := store.Importers(ctx, c.File)
	if err != nil {
		return err
	}

	if len(edges) == 0 {
		fmt.Printf("No corpus file imports %s\n", c.File)
		return nil
	}

	fmt.Printf("%s is imported by %d file(s):\n\n", c.File, len(edges))
	for _, edge := range edges {
		switch {
		case edge.Wildcard:
			fmt.Printf("  %s (star import)\n", edge.From)
		case len(edge.Symbols) > 0:
			fmt.Printf("  %s (imports %s)\n", edge.From, strings.Join(edge.Symbols, ", "))
		default:
			fmt.Printf("  %s (whole module)\n", edge.From)
		}
	}
	return nil
}

// WatchCmd enables watch mode with live re-analysis.
type WatchCmd struct{}

// Run executes the watch command.
func (c *WatchCmd) Run() error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	meta, err := readMeta(root)
	if err != nil {
		return err
	}

	fmt.Println("## Watch Mode")
	fmt.Printf("Watching %s for changes (Ctrl+C to stop)\n\n", root)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-osSignalChannel()
		fmt.Println("\nStopping watch mode...")
		cancel()
	}()

	err = corpus.Watch(ctx, root, func(changed []string) {
		fmt.Printf("Changed: %s\n", strings.Join(changed, ", "))
		if err := reanalyze(ctx, root, meta.Entries); err != nil {
			color.Red("Re-analysis failed: %v", err)
			return
		}
		color.Green("✓ Index updated")
	})
	if err != nil && err != context.Canceled {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Println("Watch mode stopped.")
	return nil
}

// MCPCmd starts the MCP server.
type MCPCmd struct{}

// Run executes the mcp command.
func (c *MCPCmd) Run() error {
	ctx := context.Background()
	store, err := loadStorage(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	server := mcp.NewServer(store)

	// Note: No output to stderr - MCP server uses stdio for JSON-RPC only
	return server.Run(ctx, os.Stdin, os.Stdout)
}

// ServeCmd starts the MCP server with optional watch mode.
type ServeCmd struct {
	Watch bool `short:"w" help:"Enable file watching"`
}

// Run executes the serve command.
func (c *ServeCmd) Run() error {
	ctx := context.Background()
	store, err := loadStorage(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	server := mcp.NewServer(store)

	if c.Watch {
		fmt.Fprintln(os.Stderr, "Starting MCP server with watch mode...")

		root, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}

		meta, err := readMeta(root)
		if err != nil {
			return err
		}

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		go func() {
			err := corpus.Watch(watchCtx, root, func(changed []string) {
				if err := reanalyze(watchCtx, root, meta.Entries); err != nil {
					fmt.Fprintf(os.Stderr, "Re-analysis failed: %v\n", err)
				}
			})
			if err != nil && err != context.Canceled {
				fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)
			}
		}()

		fmt.Fprintln(os.Stderr, "File watching enabled")
	} else {
		fmt.Fprintln(os.Stderr, "Starting MCP server...")
	}

	return server.Run(ctx, os.Stdin, os.Stdout)
}

// StatusCmd shows index status for the current corpus.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run() error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	meta, err := readMeta(root)
	if err != nil {
		return err
	}

	fmt.Printf("Index status for %s\n", root)
	fmt.Printf("  Version:       %s\n", meta.Version)
	fmt.Printf("  Entries:       %s\n", strings.Join(meta.Entries, ", "))
	fmt.Printf("  Last analyzed: %s\n", meta.AnalyzedAt)
	fmt.Printf("  Files:         %d\n", meta.Stats.Units)
	fmt.Printf("  Definitions:   %d (%d live)\n", meta.Stats.Defs, meta.Stats.LiveDefs)
	fmt.Printf("  Import edges:  %d\n", meta.Stats.Edges)

	return nil
}

// CleanCmd deletes the index for the current corpus.
type CleanCmd struct {
	Force bool `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run() error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	indexDir := filepath.Join(root, ".codeslim")
	if _, err := os.Stat(indexDir); os.IsNotExist(err) {
		return fmt.Errorf("no index found at %s. Nothing to clean", root)
	}

	if !c.Force {
		fmt.Printf("Delete index at %s? [y/N] ", indexDir)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(indexDir); err != nil {
		return fmt.Errorf("deleting index: %w", err)
	}

	color.Green("Deleted %s", indexDir)
	return nil
}

// SetupCmd configures MCP for various AI clients.
type SetupCmd struct {
	Qwen     bool   `help:"Configure for Qwen CLI"`
	Claude   bool   `help:"Configure for Claude Code"`
	Cursor   bool   `help:"Configure for Cursor"`
	Local    bool   `help:"Create project-local configuration"`
	Global   bool   `help:"Create global configuration"`
	Format   string `help:"Output format (json|text)" enum:"json,text" default:"json"`
	FilePath string `help:"Custom file path for configuration"`
}

// Run executes the setup command.
func (c *SetupCmd) Run() error {
	if c.Format != "json" && c.Format != "text" {
		return fmt.Errorf("invalid format: %s (must be json or text)", c.Format)
	}

	// If no specific client is specified, output config to stdout
	if !c.Qwen && !c.Claude && !c.Cursor {
		return c.outputDefaultConfig()
	}

	// If neither local nor global is specified, default to local
	if !c.Local && !c.Global {
		c.Local = true
	}

	if c.Qwen {
		if err := c.setupClient("qwen", "mcp.json"); err != nil {
			return err
		}
	}

	if c.Claude {
		if err := c.setupClient("claude", "settings.json"); err != nil {
			return err
		}
	}

	if c.Cursor {
		if err := c.setupClient("cursor", "mcp.json"); err != nil {
			return err
		}
	}

	return nil
}

func (c *SetupCmd) outputDefaultConfig() error {
	config := generateMCPConfig()

	if c.Format == "json" {
		jsonBytes, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Println("# Add this to your MCP client configuration:")
		fmt.Println()
		for key, value := range config {
			fmt.Printf("%s: %s\n", key, toJSON(value))
		}
	}

	return nil
}

func (c *SetupCmd) setupClient(client, localFile string) error {
	config := generateMCPConfig()

	if c.Global {
		globalPath := getGlobalConfigPath(client)
		if err := writeConfig(globalPath, config, c.Format); err != nil {
			return err
		}
		color.Green("✓ Created global %s MCP config at %s", client, globalPath)
	}

	if c.Local {
		var localPath string
		if c.FilePath != "" {
			localPath = filepath.Join(c.FilePath, localFile)
		} else {
			localPath = getLocalConfigPath(".", client)
		}
		if err := writeConfig(localPath, config, c.Format); err != nil {
			return err
		}
		color.Green("✓ Created local %s MCP config at %s", client, localPath)
	}

	return nil
}

func generateMCPConfig() map[string]any {
	return map[string]any{
		"mcpServers": map[string]any{
			"codeslim": map[string]any{
				"command": "codeslim",
				"args":    []string{"serve", "--watch"},
			},
		},
	}
}

// Path helpers

func getLocalConfigPath(basePath, client string) string {
	configDir := getClientConfigDir(client)
	return filepath.Join(basePath, configDir, "mcp.json")
}

func getGlobalConfigPath(client string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
	}

	configDir := getClientConfigDir(client)
	return filepath.Join(homeDir, configDir, "global", "mcp.json")
}

func getClientConfigDir(client string) string {
	switch client {
	case "qwen":
		return ".qwen"
	case "claude":
		return ".claude"
	case "cursor":
		return ".cursor"
	default:
		return ".qwen"
	}
}

// Config writers

func writeConfig(configPath string, config map[string]any, format string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	var content []byte
	var err error

	if format == "json" {
		content, err = json.MarshalIndent(config, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		content = append(content, '\n')
	} else {
		var sb strings.Builder
		sb.WriteString("# MCP Configuration for CodeSlim\n")
		sb.WriteString("# Generated by codeslim setup\n\n")

		for key, value := range config {
			sb.WriteString(fmt.Sprintf("%s: %s\n", key, toJSON(value)))
		}
		content = []byte(sb.String())
	}

	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Helper functions

// indexMeta is the meta.json record written next to the index.
type indexMeta struct {
	Version    string        `json:"version"`
	Name       string        `json:"name"`
	Root       string        `json:"root"`
	Entries    []string      `json:"entries"`
	Stats      storage.Stats `json:"stats"`
	AnalyzedAt string        `json:"analyzed_at"`
}

func analyzeCorpus(root string, entries []string) (*corpus.Graph, *analysis.Analyzer, error) {
	graph, err := corpus.NewBuilder(root).Build(entries)
	if err != nil {
		return nil, nil, err
	}
	return graph, analysis.New(graph), nil
}

func saveIndex(ctx context.Context, root string, entries []string, graph *corpus.Graph, analyzer *analysis.Analyzer) error {
	indexDir := filepath.Join(root, ".codeslim")
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return fmt.Errorf("creating .codeslim directory: %w", err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(filepath.Join(indexDir, "badger"), false); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	snap := storage.BuildSnapshot(graph, analyzer)
	if err := store.BulkLoad(ctx, snap); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	meta := indexMeta{
		Version:    Version,
		Name:       filepath.Base(root),
		Root:       root,
		Entries:    entries,
		Stats:      stats,
		AnalyzedAt: time.Now().UTC().Format(time.RFC3339),
	}

	metaJSON, _ := json.MarshalIndent(meta, "", "  ")
	metaPath := filepath.Join(indexDir, "meta.json")
	if err := os.WriteFile(metaPath, metaJSON, 0o644); err != nil {
		return fmt.Errorf("writing meta.json: %w", err)
	}

	return nil
}

func reanalyze(ctx context.Context, root string, entries []string) error {
	graph, analyzer, err := analyzeCorpus(root, entries)
	if err != nil {
		return err
	}
	return saveIndex(ctx, root, entries, graph, analyzer)
}

func readMeta(root string) (*indexMeta, error) {
	metaPath := filepath.Join(root, ".codeslim", "meta.json")
	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no index found at %s. Run 'codeslim analyze' first", root)
		}
		return nil, fmt.Errorf("reading meta.json: %w", err)
	}

	var meta indexMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("parsing meta.json: %w", err)
	}
	return &meta, nil
}

func loadStorage(readOnly bool) (*storage.BadgerBackend, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	dbPath := filepath.Join(root, ".codeslim", "badger")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no index found at %s. Run 'codeslim analyze' first", root)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(dbPath, readOnly); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	return store, nil
}

func parseMapper(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	mapper := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid mapping %q (expected old.module=new_module)", pair)
		}
		mapper[key] = value
	}
	return mapper, nil
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		color.Yellow("warning: %s", w)
	}
}

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

func toJSON(v any) string {
	bytes, _ := json.Marshal(v)
	return string(bytes)
}

// CLI is the root Kong command structure.
type CLI struct {
	Version kong.VersionFlag `help:"Show version information"`
	Verbose bool             `short:"v" help:"Enable verbose output"`
	Quiet   bool             `short:"q" help:"Suppress non-essential output"`

	// Commands
	Analyze   AnalyzeCmd   `cmd:"" help:"Analyze a Python corpus from its entry files"`
	Slim      SlimCmd      `cmd:"" help:"Emit a slimmed copy of the corpus"`
	DeadCode  DeadCodeCmd  `cmd:"" help:"List prunable definitions"`
	Graph     GraphCmd     `cmd:"" help:"Print the stored corpus graph"`
	Importers ImportersCmd `cmd:"" help:"Show which files import a corpus file"`
	Watch     WatchCmd     `cmd:"" help:"Watch mode with live re-analysis"`
	Setup     SetupCmd     `cmd:"" help:"Configure MCP for Claude Code / Cursor"`
	MCP       MCPCmd       `cmd:"" help:"Start MCP server (stdio transport)"`
	Serve     ServeCmd     `cmd:"" help:"Start MCP server with optional watch mode"`
	Status    StatusCmd    `cmd:"" help:"Show index status for current corpus"`
	Clean     CleanCmd     `cmd:"" help:"Delete index for current corpus"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	kongCtx, err := kong.New(c,
		kong.Name("codeslim"),
		kong.Description("Dependency-aware source slimmer for Python corpora"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}

	parsed, err := kongCtx.Parse(args)
	if err != nil {
		return err
	}

	return parsed.Run()
}
