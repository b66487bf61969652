package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const serverName = "strata"

const (
	descListSources = "List the configured data sources with their driver and redacted location. " +
		"Call this first; every other tool takes a source name."

	descListTables = "List the user tables of a data source, system tables excluded, in catalog order."

	descProfileTable = "Profile one table: column schema; primary key, foreign keys and indexes; " +
		"null and distinct counts per column with the retained value distribution; " +
		"and, for assessment tables, the count consistency checks. " +
		"Failures are reported inline per column or per constraint kind."

	descProfileDatabase = "Profile every user table of a data source and return the full result. " +
		"This scans every column of every table and can be slow on large databases. " +
		"When the server writes reports, the created file paths are returned as well."

	descSourceParam = "Name of the configured data source"
	descTableParam  = "Name of the table to profile"
)

// Profiler is the analysis surface the tools need.
type Profiler interface {
	ListTables(ctx context.Context, src domain.Source) ([]string, error)
	AnalyzeSingleTable(ctx context.Context, src domain.Source, table string) (*domain.TableResult, error)
	AnalyzeDatabase(ctx context.Context, runID string, src domain.Source) *domain.DatabaseResult
}

// ReportWriter persists a database result and returns the created files.
type ReportWriter interface {
	WriteDatabase(db *domain.DatabaseResult) ([]string, error)
}

// Deps wires the tools to the application. Reports is optional.
type Deps struct {
	Profiler Profiler
	Sources  []domain.Source
	Reports  ReportWriter
}

type sourceSummary struct {
	Name       string `json:"name"`
	Driver     string `json:"driver"`
	Location   string `json:"location"`
	Assessment bool   `json:"assessment,omitempty"`
}

type databaseResponse struct {
	Result *domain.DatabaseResult `json:"result"`
	Files  []string               `json:"files,omitempty"`
}

func RegisterTools(s *server.MCPServer, deps Deps) {
	s.AddTool(
		mcp.NewTool("list_sources",
			mcp.WithDescription(descListSources),
		),
		listSourcesHandler(deps.Sources),
	)

	s.AddTool(
		mcp.NewTool("list_tables",
			mcp.WithDescription(descListTables),
			mcp.WithString("source", mcp.Required(), mcp.Description(descSourceParam)),
		),
		listTablesHandler(deps),
	)

	s.AddTool(
		mcp.NewTool("profile_table",
			mcp.WithDescription(descProfileTable),
			mcp.WithString("source", mcp.Required(), mcp.Description(descSourceParam)),
			mcp.WithString("table_name", mcp.Required(), mcp.Description(descTableParam)),
		),
		profileTableHandler(deps),
	)

	s.AddTool(
		mcp.NewTool("profile_database",
			mcp.WithDescription(descProfileDatabase),
			mcp.WithString("source", mcp.Required(), mcp.Description(descSourceParam)),
		),
		profileDatabaseHandler(deps),
	)
}

func listSourcesHandler(sources []domain.Source) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out := make([]sourceSummary, len(sources))
		for i, src := range sources {
			out[i] = sourceSummary{
				Name:       src.Name,
				Driver:     src.Driver,
				Location:   src.Location(),
				Assessment: src.Assessment,
			}
		}
		return jsonResult(out)
	}
}

func listTablesHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		src, errResult := resolveSource(request, deps.Sources)
		if errResult != nil {
			return errResult, nil
		}

		tables, err := deps.Profiler.ListTables(ctx, src)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list tables: %v", err)), nil
		}
		return jsonResult(tables)
	}
}

func profileTableHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		src, errResult := resolveSource(request, deps.Sources)
		if errResult != nil {
			return errResult, nil
		}
		table, ok := request.GetArguments()["table_name"].(string)
		if !ok || table == "" {
			return mcp.NewToolResultError("table_name is required"), nil
		}

		result, err := deps.Profiler.AnalyzeSingleTable(ctx, src, table)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to profile table: %v", err)), nil
		}
		return jsonResult(result)
	}
}

func profileDatabaseHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		src, errResult := resolveSource(request, deps.Sources)
		if errResult != nil {
			return errResult, nil
		}

		db := deps.Profiler.AnalyzeDatabase(ctx, uuid.NewString(), src)
		if db.Error != "" {
			return mcp.NewToolResultError(fmt.Sprintf("failed to profile %s (%s): %s", src.Name, db.ErrorKind, db.Error)), nil
		}

		resp := databaseResponse{Result: db}
		if deps.Reports != nil {
			files, err := deps.Reports.WriteDatabase(db)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("profiled %s but writing reports failed: %v", src.Name, err)), nil
			}
			resp.Files = files
		}
		return jsonResult(resp)
	}
}

// resolveSource finds the requested source by name, ignoring case.
func resolveSource(request mcp.CallToolRequest, sources []domain.Source) (domain.Source, *mcp.CallToolResult) {
	name, ok := request.GetArguments()["source"].(string)
	if !ok || name == "" {
		return domain.Source{}, mcp.NewToolResultError("source is required")
	}
	for _, src := range sources {
		if strings.EqualFold(src.Name, name) {
			return src, nil
		}
	}
	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.Name
	}
	return domain.Source{}, mcp.NewToolResultError(
		fmt.Sprintf("unknown source %q (configured: %s)", name, strings.Join(names, ", ")))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
