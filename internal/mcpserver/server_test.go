package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/skald/internal/index"
	"github.com/starford/skald/internal/journal"
	"github.com/starford/skald/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	_, store := testutil.TestJournal(t)
	idx := index.NewAutoIndexer(testutil.TestJSONIndex(t, store), store, true, 0, testutil.Logger())
	return New(journal.NewService(store, idx, testutil.Logger()))
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error
	ctx := context.Background()
	switch name {
	case "create_session":
		result, err = srv.createSession(ctx, req)
	case "create_plan":
		result, err = srv.createPlan(ctx, req)
	case "create_pattern":
		result, err = srv.createPattern(ctx, req)
	case "query_sessions":
		result, err = srv.querySessions(ctx, req)
	case "query_plans":
		result, err = srv.queryPlans(ctx, req)
	case "search_journal":
		result, err = srv.search(ctx, req)
	case "update_session":
		result, err = srv.updateSession(ctx, req)
	case "append_section":
		result, err = srv.appendSection(ctx, req)
	case "rebuild_index":
		result, err = srv.rebuildIndex(ctx, req)
	default:
		t.Fatalf("unknown tool %s", name)
	}
	if err != nil {
		t.Fatalf("tool %s: %v", name, err)
	}
	return result
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty result content")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type %T", res.Content[0])
	}
	return tc.Text
}

func TestCreateAndQuerySessions(t *testing.T) {
	srv := testServer(t)

	res := callTool(t, srv, "create_session", map[string]any{
		"date":    "2026-08-30",
		"topics":  "tdd, refactor",
		"summary": "Parser work.",
	})
	if res.IsError {
		t.Fatalf("create failed: %s", textOf(t, res))
	}
	if !strings.Contains(textOf(t, res), "sessions/2026-08-30.md") {
		t.Errorf("result = %s", textOf(t, res))
	}

	res = callTool(t, srv, "query_sessions", map[string]any{"topic": "tdd"})
	if res.IsError {
		t.Fatalf("query failed: %s", textOf(t, res))
	}
	var body struct {
		Count int `json:"count"`
		Items []struct {
			Date   string   `json:"date"`
			Topics []string `json:"topics"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(textOf(t, res)), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || body.Items[0].Date != "2026-08-30" {
		t.Errorf("body = %+v", body)
	}
}

func TestCreateSession_MissingTopics(t *testing.T) {
	srv := testServer(t)
	res := callTool(t, srv, "create_session", map[string]any{"date": "2026-08-30"})
	if !res.IsError {
		t.Fatal("expected error result for missing required topics")
	}
}

func TestSearchTool(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "create_pattern", map[string]any{
		"title":    "Keep tests fast",
		"keywords": "testing",
		"lesson":   "Slow suites rot.",
	})

	res := callTool(t, srv, "search_journal", map[string]any{"query": "rot"})
	if res.IsError {
		t.Fatalf("search failed: %s", textOf(t, res))
	}
	text := textOf(t, res)
	if !strings.Contains(text, `"count": 1`) || !strings.Contains(text, "patterns/keep-tests-fast.md") {
		t.Errorf("result = %s", text)
	}
}

func TestUpdateSessionTool_InvalidStatus(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "create_session", map[string]any{"date": "2026-08-30", "topics": "tdd"})

	res := callTool(t, srv, "update_session", map[string]any{"date": "2026-08-30", "status": "finished"})
	if !res.IsError {
		t.Fatal("expected error result for bad status")
	}
	if !strings.Contains(textOf(t, res), "status") {
		t.Errorf("error = %s", textOf(t, res))
	}
}

func TestAppendSectionTool(t *testing.T) {
	srv := testServer(t)
	callTool(t, srv, "create_plan", map[string]any{
		"id": "api-rework", "author": "alice", "goal": "Rework the API.",
	})

	res := callTool(t, srv, "append_section", map[string]any{
		"kind": "plan", "target": "api-rework",
		"heading": "Milestones", "content": "First cut by Friday.",
		"anchor": "Goal", "placement": "after",
	})
	if res.IsError {
		t.Fatalf("append failed: %s", textOf(t, res))
	}

	res = callTool(t, srv, "search_journal", map[string]any{"query": "Friday", "scope": "plans"})
	if !strings.Contains(textOf(t, res), "plans/api-rework.md") {
		t.Errorf("result = %s", textOf(t, res))
	}
}

func TestRebuildTool(t *testing.T) {
	srv := testServer(t)
	res := callTool(t, srv, "rebuild_index", nil)
	if res.IsError {
		t.Fatalf("rebuild failed: %s", textOf(t, res))
	}
	if !strings.Contains(textOf(t, res), `"scanned": 0`) {
		t.Errorf("result = %s", textOf(t, res))
	}
}
