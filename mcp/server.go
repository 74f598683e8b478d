// Package mcp provides the MCP (Model Context Protocol) server for CodeSlim.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Asthestarsfalll/codeslim-go/internal/storage"
)

// Server represents the MCP server.
type Server struct {
	index  IndexBackend
	server *mcp.Server
}

// IndexBackend is the slice of the storage interface the server reads.
type IndexBackend interface {
	Units(ctx context.Context) ([]storage.UnitRecord, error)
	DefsByFile(ctx context.Context, relPath string) ([]storage.DefRecord, error)
	FindDefs(ctx context.Context, name string) ([]storage.DefRecord, error)
	DeadDefs(ctx context.Context) ([]storage.DefRecord, error)
	Importers(ctx context.Context, relPath string) ([]storage.EdgeRecord, error)
	Stats(ctx context.Context) (storage.Stats, error)
	Close() error
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a new MCP server over an analyzed index.
func NewServer(index IndexBackend) *Server {
	s := &Server{
		index: index,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "codeslim",
		Version: "0.1.0",
	}, nil)

	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "codeslim_dead_code",
			Description: "List every definition the liveness analysis marked as prunable.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
		},
		{
			Name:        "codeslim_definition",
			Description: "Look up a function or class by name across the analyzed corpus.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"name": {Type: "string", Description: "Definition name to look up"},
				},
				Required: []string{"name"},
			},
		},
		{
			Name:        "codeslim_importers",
			Description: "List the files that import a given corpus file.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"file": {Type: "string", Description: "File path relative to the corpus root"},
				},
				Required: []string{"file"},
			},
		},
		{
			Name:        "codeslim_file",
			Description: "List the top-level definitions of one corpus file with their liveness.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"file": {Type: "string", Description: "File path relative to the corpus root"},
				},
				Required: []string{"file"},
			},
		},
		{
			Name:        "codeslim_stats",
			Description: "Summarize the analyzed corpus: files, definitions, live definitions, import edges.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "codeslim://overview",
			Name:        "Corpus Overview",
			Description: "High-level statistics about the analyzed corpus",
			MimeType:    "text/plain",
		},
		{
			URI:         "codeslim://dead-code",
			Name:        "Dead Code Report",
			Description: "List of all definitions flagged as prunable",
			MimeType:    "text/plain",
		},
		{
			URI:         "codeslim://schema",
			Name:        "Index Schema",
			Description: "Description of the CodeSlim index records",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "codeslim_dead_code":
		return handleDeadCode(ctx, s.index)
	case "codeslim_definition":
		defName, _ := args["name"].(string)
		return handleDefinition(ctx, s.index, defName)
	case "codeslim_importers":
		file, _ := args["file"].(string)
		return handleImporters(ctx, s.index, file)
	case "codeslim_file":
		file, _ := args["file"].(string)
		return handleFile(ctx, s.index, file)
	case "codeslim_stats":
		return handleStats(ctx, s.index)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "codeslim://overview":
		return getOverview(ctx, s.index), nil
	case "codeslim://dead-code":
		content, err := handleDeadCode(ctx, s.index)
		if err != nil {
			return "", err
		}
		return content, nil
	case "codeslim://schema":
		return getSchema(), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run starts the MCP server with stdio transport.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}

	reader := bufio.NewReader(stdin)
	encoder := json.NewEncoder(stdout)
	// Note: Do NOT use SetIndent - MCP protocol requires compact JSON (one line per message)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}

		resp := s.handleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req map[string]any) map[string]any {
	method, _ := req["method"].(string)
	id := req["id"]

	switch method {
	case "initialize":
		return s.handleInitialize(id)
	case "tools/list":
		return s.handleToolsList(id)
	case "tools/call":
		return s.handleToolsCall(ctx, id, req)
	case "resources/list":
		return s.handleResourcesList(id)
	case "resources/read":
		return s.handleResourcesRead(ctx, id, req)
	default:
		return errorResponse(id, -32601, "Method not found: "+method)
	}
}

func (s *Server) handleInitialize(id any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]any{
				"name":    "codeslim",
				"version": "0.1.0",
			},
			"capabilities": map[string]any{
				"tools": map[string]any{
					"listChanged": false,
				},
				"resources": map[string]any{
					"listChanged": false,
				},
			},
		},
	}
}

func (s *Server) handleToolsList(id any) map[string]any {
	tools := s.ListTools()
	toolList := make([]map[string]any, len(tools))
	for i, tool := range tools {
		schema, _ := json.Marshal(tool.InputSchema)
		var schemaMap map[string]any
		json.Unmarshal(schema, &schemaMap)

		toolList[i] = map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": schemaMap,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"tools": toolList,
		},
	}
}

func (s *Server) handleToolsCall(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	result, err := s.CallTool(ctx, name, args)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"content": []map[string]any{
				{
					"type": "text",
					"text": result,
				},
			},
		},
	}
}

func (s *Server) handleResourcesList(id any) map[string]any {
	resources := s.ListResources()
	resourceList := make([]map[string]any, len(resources))
	for i, res := range resources {
		resourceList[i] = map[string]any{
			"uri":         res.URI,
			"name":        res.Name,
			"description": res.Description,
			"mimeType":    res.MimeType,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"resources": resourceList,
		},
	}
}

func (s *Server) handleResourcesRead(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	uri, _ := params["uri"].(string)

	content, err := s.ReadResource(ctx, uri)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"contents": []map[string]any{
				{
					"uri":      uri,
					"mimeType": "text/plain",
					"text":     content,
				},
			},
		},
	}
}

// Tool Handlers

func handleDeadCode(ctx context.Context, index IndexBackend) (string, error) {
	dead, err := index.DeadDefs(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("## Dead Code Report\n\n")

	if len(dead) == 0 {
		sb.WriteString("No prunable definitions found.\n\n")
		sb.WriteString("Every top-level definition is either:\n")
		sb.WriteString("- Imported by another corpus file\n")
		sb.WriteString("- Referenced within its own file\n")
		sb.WriteString("- A dunder protocol hook\n")
		return sb.String(), nil
	}

	sb.WriteString(fmt.Sprintf("Found %d prunable definition(s).\n\n", len(dead)))

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
		sb.WriteString(fmt.Sprintf("### %s (%d)\n", file, len(defs)))
		for _, def := range defs {
			sb.WriteString(fmt.Sprintf("- `%s` (%s) at line %d\n", def.Name, def.Kind, def.Line))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Next: run `codeslim slim --mode segment` to emit a corpus without these definitions.")
	return sb.String(), nil
}

func handleDefinition(ctx context.Context, index IndexBackend, name string) (string, error) {
	if name == "" {
		return "No definition name provided", nil
	}

	defs, err := index.FindDefs(ctx, name)
	if err != nil {
		return "", err
	}
	if len(defs) == 0 {
		return fmt.Sprintf("Definition '%s' not found in index", name), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d definition(s) of **%s**:\n\n", len(defs), name))
	for _, def := range defs {
		liveness := "prunable"
		if def.Live {
			liveness = "live"
		}
		sb.WriteString(fmt.Sprintf("- %s `%s` in %s:%d (%s)\n", def.Kind, def.Name, def.File, def.Line, liveness))
		if len(def.Bases) > 0 {
			sb.WriteString(fmt.Sprintf("  bases: %s\n", strings.Join(def.Bases, ", ")))
		}
		if len(def.Methods) > 0 {
			sb.WriteString(fmt.Sprintf("  methods: %s\n", strings.Join(def.Methods, ", ")))
		}
	}
	return sb.String(), nil
}

func handleImporters(ctx context.Context, index IndexBackend, file string) (string, error) {
	if file == "" {
		return "No file provided", nil
	}

	edges, err := index.Importers(ctx, file)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if len(edges) == 0 {
		sb.WriteString(fmt.Sprintf("No corpus file imports `%s`.\n", file))
		return sb.String(), nil
	}

	sb.WriteString(fmt.Sprintf("`%s` is imported by %d file(s):\n\n", file, len(edges)))
	for _, edge := range edges {
		switch {
		case edge.Wildcard:
			sb.WriteString(fmt.Sprintf("- %s (star import)\n", edge.From))
		case len(edge.Symbols) > 0:
			sb.WriteString(fmt.Sprintf("- %s (imports %s)\n", edge.From, strings.Join(edge.Symbols, ", ")))
		default:
			sb.WriteString(fmt.Sprintf("- %s (whole module)\n", edge.From))
		}
	}
	return sb.String(), nil
}

func handleFile(ctx context.Context, index IndexBackend, file string) (string, error) {
	if file == "" {
		return "No file provided", nil
	}

	defs, err := index.DefsByFile(ctx, file)
	if err != nil {
		return "", err
	}
	if len(defs) == 0 {
		return fmt.Sprintf("No definitions recorded for `%s`.", file), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Definitions in `%s`:\n\n", file))
	for _, def := range defs {
		liveness := "prunable"
		if def.Live {
			liveness = "live"
		}
		sb.WriteString(fmt.Sprintf("- line %d: %s `%s` (%s)\n", def.Line, def.Kind, def.Name, liveness))
	}
	return sb.String(), nil
}

func handleStats(ctx context.Context, index IndexBackend) (string, error) {
	stats, err := index.Stats(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("## Corpus Statistics\n\n")
	sb.WriteString(fmt.Sprintf("- Files: %d\n", stats.Units))
	sb.WriteString(fmt.Sprintf("- Definitions: %d\n", stats.Defs))
	sb.WriteString(fmt.Sprintf("- Live definitions: %d\n", stats.LiveDefs))
	sb.WriteString(fmt.Sprintf("- Prunable definitions: %d\n", stats.Defs-stats.LiveDefs))
	sb.WriteString(fmt.Sprintf("- Import edges: %d\n", stats.Edges))
	return sb.String(), nil
}

// Resource Handlers

func getOverview(ctx context.Context, index IndexBackend) string {
	var sb strings.Builder
	sb.WriteString("# CodeSlim Index Overview\n\n")

	stats, err := index.Stats(ctx)
	if err == nil {
		sb.WriteString(fmt.Sprintf("**Files:** %d\n", stats.Units))
		sb.WriteString(fmt.Sprintf("**Definitions:** %d (%d live)\n", stats.Defs, stats.LiveDefs))
		sb.WriteString(fmt.Sprintf("**Import edges:** %d\n", stats.Edges))
	}

	units, err := index.Units(ctx)
	if err == nil && len(units) > 0 {
		sb.WriteString("\n## Files\n\n")
		for _, unit := range units {
			marker := ""
			if unit.IsEntry {
				marker = " (entry)"
			}
			sb.WriteString(fmt.Sprintf("- %s%s\n", unit.RelPath, marker))
		}
	}

	return sb.String()
}

func getSchema() string {
	var sb strings.Builder
	sb.WriteString("# CodeSlim Index Schema\n\n")
	sb.WriteString("## Records\n\n")
	sb.WriteString("| Record | Description | Key Properties |\n")
	sb.WriteString("|--------|-------------|----------------|\n")
	sb.WriteString("| `unit` | Analyzed source file | rel_path, module, is_entry |\n")
	sb.WriteString("| `def` | Top-level definition | name, kind, file, line, live |\n")
	sb.WriteString("| `edge` | Import edge | from, to, module, symbols |\n")
	sb.WriteString("\n## Liveness\n\n")
	sb.WriteString("A definition is live when another corpus file imports it by name or\n")
	sb.WriteString("whole module, or when its own file references it outside its body.\n")
	sb.WriteString("Dunder names are always live.\n")
	return sb.String()
}

// Helper functions

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}
