package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
)

type ListProjectsInput struct{}

type GetProjectInput struct {
	ProjectCode string `json:"projectCode" jsonschema:"project code, e.g. project-001"`
}

type AnalyzeProjectInput struct {
	ProjectCode string `json:"projectCode" jsonschema:"project code, e.g. project-001"`
	Query       string `json:"query" jsonschema:"question to answer about the project"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_projects",
		Description: "List all carbon offset projects",
	}, s.handleListProjects)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_project",
		Description: "Return a project with its summary, risk metrics, time series, land use and boundaries",
	}, s.handleGetProject)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "analyze_project",
		Description: "Answer a question about a project using its records and stored documents",
	}, s.handleAnalyzeProject)
}

func (s *Server) handleListProjects(ctx context.Context, req *sdk.CallToolRequest, input ListProjectsInput) (*sdk.CallToolResult, any, error) {
	projects, err := s.service.ListProjects(ctx)
	if err != nil {
		return toolError(err), nil, nil
	}
	return toolJSON(projects)
}

func (s *Server) handleGetProject(ctx context.Context, req *sdk.CallToolRequest, input GetProjectInput) (*sdk.CallToolResult, any, error) {
	details, err := s.service.Details(ctx, input.ProjectCode)
	if err != nil {
		return toolError(err), nil, nil
	}
	return toolJSON(details)
}

func (s *Server) handleAnalyzeProject(ctx context.Context, req *sdk.CallToolRequest, input AnalyzeProjectInput) (*sdk.CallToolResult, any, error) {
	resp, err := s.service.Analyze(ctx, input.ProjectCode, input.Query)
	if err != nil {
		return toolError(err), nil, nil
	}
	return toolJSON(resp)
}

// toolError reports err to the client as a tool failure rather than a
// protocol error, so the model can read it.
func toolError(err error) *sdk.CallToolResult {
	msg := "analysis failed"
	switch {
	case errors.Is(err, project.ErrInvalidArgument):
		msg = "invalid arguments"
	case errors.Is(err, project.ErrNotFound):
		msg = "project not found"
	case errors.Is(err, project.ErrUpstreamUnavailable):
		msg = "relational store unavailable"
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: fmt.Sprintf("%s: %v", msg, err)}},
		IsError: true,
	}
}

func toolJSON(v any) (*sdk.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: string(data)}},
	}, nil, nil
}
