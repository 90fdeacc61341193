package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/analysis"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/docstore"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/narrative"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/seed"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/store/sqlite"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "projects.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close(context.Background()) })
	if _, err := seed.Load(context.Background(), db, docstore.Noop{}); err != nil {
		t.Fatalf("seeding: %v", err)
	}
	svc := analysis.NewService(db,
		docstore.NewRetriever(docstore.Noop{}, time.Second),
		narrative.New(nil, 0, time.Second),
		0,
	)
	return NewServer(svc, "test")
}

func resultText(t *testing.T, res *sdk.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	tc, ok := res.Content[0].(*sdk.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", res.Content[0])
	}
	return tc.Text
}

func TestListProjects(t *testing.T) {
	server := newTestServer(t)
	res, _, err := server.handleListProjects(context.Background(), nil, ListProjectsInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var projects []project.Project
	if err := json.Unmarshal([]byte(resultText(t, res)), &projects); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(projects) != 3 {
		t.Errorf("expected 3 projects, got %d", len(projects))
	}
}

func TestGetProject(t *testing.T) {
	server := newTestServer(t)
	res, _, err := server.handleGetProject(context.Background(), nil, GetProjectInput{ProjectCode: "project-002"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), `"Congo Basin Protection"`) {
		t.Errorf("unexpected output: %s", resultText(t, res))
	}
}

func TestGetProject_NotFound(t *testing.T) {
	server := newTestServer(t)
	res, _, err := server.handleGetProject(context.Background(), nil, GetProjectInput{ProjectCode: "Missing"})
	if err != nil {
		t.Fatalf("expected a tool error, not a protocol error: %v", err)
	}
	if !res.IsError || !strings.HasPrefix(resultText(t, res), "project not found") {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestAnalyzeProject_MissingQuery(t *testing.T) {
	server := newTestServer(t)
	res, _, _ := server.handleAnalyzeProject(context.Background(), nil, AnalyzeProjectInput{ProjectCode: "project-001"})
	if !res.IsError || !strings.HasPrefix(resultText(t, res), "invalid arguments") {
		t.Errorf("unexpected result: %s", resultText(t, res))
	}
}

func TestAnalyzeProjectOverTransport(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	clientTransport, serverTransport := sdk.NewInMemoryTransports()
	if _, err := server.mcp.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := sdk.NewClient(&sdk.Implementation{Name: "test-client"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(tools.Tools) != 3 {
		t.Errorf("expected 3 tools, got %d", len(tools.Tools))
	}

	res, err := session.CallTool(ctx, &sdk.CallToolParams{
		Name:      "analyze_project",
		Arguments: map[string]any{"projectCode": "project-001", "query": "What is the leakage risk?"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	var resp project.AnalysisResponse
	if err := json.Unmarshal([]byte(resultText(t, res)), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Project.Code != "project-001" || resp.RiskMetrics[0].Category != "Leakage" {
		t.Errorf("unexpected response: %+v", resp.Details)
	}
	if !resp.Degraded.Generation {
		t.Error("expected generation to be degraded without a provider")
	}
}
