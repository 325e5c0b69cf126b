// Package mcpserver exposes the journal's query engine and mutation
// protocol as MCP (Model Context Protocol) tools over stdio transport. It
// performs no business logic of its own: tool results are the service's
// return values re-emitted verbatim as JSON.
package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/skald/internal/document"
	"github.com/starford/skald/internal/journal"
	"github.com/starford/skald/internal/query"
)

// Server wraps the MCP server with skald tools.
type Server struct {
	mcp *server.MCPServer
	svc *journal.Service
}

// New creates a new MCP server with all journal tools registered.
func New(svc *journal.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"skald",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("query_sessions",
		mcp.WithDescription("Query indexed work sessions. All filters are AND-combined; results are newest first."),
		mcp.WithString("date", mcp.Description("Exact date (YYYY-MM-DD)")),
		mcp.WithString("after", mcp.Description("Inclusive lower date bound (YYYY-MM-DD)")),
		mcp.WithString("before", mcp.Description("Inclusive upper date bound (YYYY-MM-DD)")),
		mcp.WithNumber("last_days", mcp.Description("Only sessions from the last N days")),
		mcp.WithString("topic", mcp.Description("Topic substring filter")),
		mcp.WithString("plan", mcp.Description("Linked plan identifier")),
		mcp.WithNumber("limit", mcp.Description("Max results")),
	), s.querySessions)

	s.mcp.AddTool(mcp.NewTool("query_plans",
		mcp.WithDescription("Query indexed plans. Results are newest-updated first."),
		mcp.WithString("status", mcp.Description("Status filter: "+strings.Join(document.PlanStatuses, ", "))),
		mcp.WithString("author", mcp.Description("Exact author match")),
		mcp.WithString("topic", mcp.Description("Topic substring filter")),
		mcp.WithString("updated_after", mcp.Description("Inclusive lower bound on the updated date")),
		mcp.WithString("updated_before", mcp.Description("Inclusive upper bound on the updated date")),
		mcp.WithNumber("limit", mcp.Description("Max results")),
	), s.queryPlans)

	s.mcp.AddTool(mcp.NewTool("query_patterns",
		mcp.WithDescription("Query indexed learned patterns by title or trigger keyword."),
		mcp.WithString("title", mcp.Description("Title substring filter")),
		mcp.WithString("keyword", mcp.Description("Trigger-keyword substring filter")),
		mcp.WithNumber("limit", mcp.Description("Max results")),
	), s.queryPatterns)

	s.mcp.AddTool(mcp.NewTool("search_journal",
		mcp.WithDescription("Substring search across indexed document bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
		mcp.WithString("scope", mcp.Description("Limit to one kind: sessions, plans, or patterns (default all)")),
		mcp.WithNumber("limit", mcp.Description("Max results")),
	), s.search)

	s.mcp.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Create a new session document. Refuses to overwrite an existing session for the same date."),
		mcp.WithString("date", mcp.Description("Session date (YYYY-MM-DD, default today)")),
		mcp.WithString("status", mcp.Description("Status: "+strings.Join(document.SessionStatuses, ", ")+" (default in-progress)")),
		mcp.WithString("topics", mcp.Required(), mcp.Description("Comma-separated topics")),
		mcp.WithString("plan", mcp.Description("Linked plan identifier")),
		mcp.WithString("summary", mcp.Description("Initial Summary section content")),
	), s.createSession)

	s.mcp.AddTool(mcp.NewTool("create_plan",
		mcp.WithDescription("Create a new plan document."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Plan identifier (becomes the filename)")),
		mcp.WithString("author", mcp.Required(), mcp.Description("Plan author")),
		mcp.WithString("status", mcp.Description("Status: "+strings.Join(document.PlanStatuses, ", ")+" (default planned)")),
		mcp.WithString("topics", mcp.Description("Comma-separated topics")),
		mcp.WithString("goal", mcp.Description("Initial Goal section content")),
	), s.createPlan)

	s.mcp.AddTool(mcp.NewTool("create_pattern",
		mcp.WithDescription("Record a reusable lesson as a pattern document."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Pattern title")),
		mcp.WithString("keywords", mcp.Required(), mcp.Description("Comma-separated trigger keywords")),
		mcp.WithString("lesson", mcp.Description("Initial Lesson section content")),
	), s.createPattern)

	s.mcp.AddTool(mcp.NewTool("update_session",
		mcp.WithDescription("Update a session's metadata. List fields are append-if-absent."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date of the session to update")),
		mcp.WithString("status", mcp.Description("New status")),
		mcp.WithString("plan", mcp.Description("Linked plan identifier")),
		mcp.WithString("add_topics", mcp.Description("Comma-separated topics to add")),
		mcp.WithString("add_files", mcp.Description("Comma-separated touched files to add")),
	), s.updateSession)

	s.mcp.AddTool(mcp.NewTool("update_plan",
		mcp.WithDescription("Update a plan's metadata; bumps its updated date."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Identifier of the plan to update")),
		mcp.WithString("status", mcp.Description("New status")),
		mcp.WithString("author", mcp.Description("New author")),
		mcp.WithString("add_topics", mcp.Description("Comma-separated topics to add")),
	), s.updatePlan)

	s.mcp.AddTool(mcp.NewTool("append_section",
		mcp.WithDescription("Insert a titled section into a document body. Without an anchor the section is appended at the end; an ambiguous anchor is rejected with every matching location."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Document kind: session, plan, or pattern")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Filename stem: session date, plan id, or pattern slug")),
		mcp.WithString("heading", mcp.Required(), mcp.Description("Title of the new section")),
		mcp.WithString("content", mcp.Description("Section content")),
		mcp.WithString("anchor", mcp.Description("Exact heading text to anchor the insertion at")),
		mcp.WithString("placement", mcp.Description("before or after the anchor heading (default after)")),
	), s.appendSection)

	s.mcp.AddTool(mcp.NewTool("rebuild_index",
		mcp.WithDescription("Force a full index rebuild and report scan statistics."),
	), s.rebuildIndex)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) querySessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := query.SessionFilter{
		Date:     req.GetString("date", ""),
		After:    req.GetString("after", ""),
		Before:   req.GetString("before", ""),
		LastDays: intArg(req, "last_days"),
		Topic:    req.GetString("topic", ""),
		Plan:     req.GetString("plan", ""),
		Limit:    intArg(req, "limit"),
	}
	items, err := s.svc.Sessions(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return resultJSON(map[string]any{"count": len(items), "items": items})
}

func (s *Server) queryPlans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := query.PlanFilter{
		Status:        req.GetString("status", ""),
		Author:        req.GetString("author", ""),
		Topic:         req.GetString("topic", ""),
		UpdatedAfter:  req.GetString("updated_after", ""),
		UpdatedBefore: req.GetString("updated_before", ""),
		Limit:         intArg(req, "limit"),
	}
	items, err := s.svc.Plans(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return resultJSON(map[string]any{"count": len(items), "items": items})
}

func (s *Server) queryPatterns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := query.PatternFilter{
		Title:   req.GetString("title", ""),
		Keyword: req.GetString("keyword", ""),
		Limit:   intArg(req, "limit"),
	}
	items, err := s.svc.Patterns(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return resultJSON(map[string]any{"count": len(items), "items": items})
}

func (s *Server) search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	scope := query.Scope(req.GetString("scope", ""))
	results, err := s.svc.Search(ctx, text, scope, intArg(req, "limit"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return resultJSON(map[string]any{"count": len(results), "items": results})
}

func (s *Server) createSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topics, err := req.RequireString("topics")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := s.svc.CreateSession(ctx, journal.CreateSessionParams{
		Date:    req.GetString("date", ""),
		Status:  req.GetString("status", ""),
		Topics:  splitList(topics),
		Plan:    req.GetString("plan", ""),
		Summary: req.GetString("summary", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return resultJSON(map[string]string{"path": path})
}

func (s *Server) createPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	author, err := req.RequireString("author")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := s.svc.CreatePlan(ctx, journal.CreatePlanParams{
		ID:     id,
		Author: author,
		Status: req.GetString("status", ""),
		Topics: splitList(req.GetString("topics", "")),
		Goal:   req.GetString("goal", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return resultJSON(map[string]string{"path": path})
}

func (s *Server) createPattern(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	keywords, err := req.RequireString("keywords")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := s.svc.CreatePattern(ctx, journal.CreatePatternParams{
		Title:    title,
		Keywords: splitList(keywords),
		Lesson:   req.GetString("lesson", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return resultJSON(map[string]string{"path": path})
}

func (s *Server) updateSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := s.svc.UpdateSession(ctx, date, journal.SessionMutation{
		Status:    req.GetString("status", ""),
		Plan:      req.GetString("plan", ""),
		AddTopics: splitList(req.GetString("add_topics", "")),
		AddFiles:  splitList(req.GetString("add_files", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return resultJSON(map[string]string{"path": path})
}

func (s *Server) updatePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := s.svc.UpdatePlan(ctx, id, journal.PlanMutation{
		Status:    req.GetString("status", ""),
		Author:    req.GetString("author", ""),
		AddTopics: splitList(req.GetString("add_topics", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return resultJSON(map[string]string{"path": path})
}

func (s *Server) appendSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	heading, err := req.RequireString("heading")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	anchor := document.Anchor{Heading: req.GetString("anchor", "")}
	if req.GetString("placement", "") == "before" {
		anchor.Place = document.PlaceBefore
	}
	path, err := s.svc.AppendSection(ctx, document.Kind(kind), target, heading, req.GetString("content", ""), anchor)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return resultJSON(map[string]string{"path": path})
}

func (s *Server) rebuildIndex(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.svc.Rebuild(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return resultJSON(stats)
}

func resultJSON(v any) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func intArg(req mcp.CallToolRequest, key string) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return 0
	}
	return int(v)
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
