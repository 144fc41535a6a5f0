// Package mcp exposes build inspection as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"jenkins-monitor/src/loganalyzer"
	"jenkins-monitor/src/logger"
	"jenkins-monitor/src/provider"
	"jenkins-monitor/src/sanitize"
	"jenkins-monitor/src/stages"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Server is the MCP server for jenkins-monitor.
type Server struct {
	mcpServer *server.MCPServer
	provider  provider.Provider
	resolver  *stages.Resolver
}

// BuildInfo is the get_build_info result.
type BuildInfo struct {
	Job string `json:"job"`
	stages.BuildSnapshot
	FailingCommand string `json:"failingCommand,omitempty"`
}

// RecentBuilds is the list_recent_builds result.
type RecentBuilds struct {
	Job    string                 `json:"job"`
	Builds []stages.BuildSnapshot `json:"builds"`
}

// LogAnalysis is the analyze_console_log result.
type LogAnalysis struct {
	FailedStage    string `json:"failedStage,omitempty"`
	FailingCommand string `json:"failingCommand,omitempty"`
}

// NewServer creates an MCP server over p. The log must not write to stdout,
// which carries the protocol.
func NewServer(p provider.Provider, log logger.Logger) *Server {
	s := server.NewMCPServer(
		"jenkins-monitor",
		Version,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		provider:  p,
		resolver:  stages.NewResolver(p, log),
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	buildTool := mcp.NewTool("get_build_info",
		mcp.WithDescription("Get the status of a Jenkins build. For failed or aborted builds the result names the stage the failure happened in and the last shell command that ran. Pass either url, or job and build."),
		mcp.WithString("url",
			mcp.Description("Build URL, e.g. https://jenkins.example.com/job/team/job/api/42/"),
		),
		mcp.WithString("job",
			mcp.Description("Job name; folder jobs are written folder/job"),
		),
		mcp.WithNumber("build",
			mcp.Description("Build number"),
		),
	)

	recentTool := mcp.NewTool("list_recent_builds",
		mcp.WithDescription("List the five most recent builds of a Jenkins job, newest first, with current or failed stage."),
		mcp.WithString("job",
			mcp.Required(),
			mcp.Description("Job name; folder jobs are written folder/job"),
		),
	)

	analyzeTool := mcp.NewTool("analyze_console_log",
		mcp.WithDescription("Find the failed stage and failing command in raw Jenkins console text without contacting Jenkins."),
		mcp.WithString("log",
			mcp.Required(),
			mcp.Description("Console text"),
		),
	)

	s.mcpServer.AddTool(buildTool, s.handleGetBuildInfo)
	s.mcpServer.AddTool(recentTool, s.handleListRecentBuilds)
	s.mcpServer.AddTool(analyzeTool, s.handleAnalyzeConsoleLog)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleGetBuildInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	job := request.GetString("job", "")
	number := request.GetInt("build", 0)

	if url := request.GetString("url", ""); url != "" {
		ref, err := provider.ParseURL(url)
		if err != nil {
			return mcp.NewToolResultError(provider.WrapError(err).Error()), nil
		}
		job, number = ref.Job, ref.Number
	}
	if job == "" || number <= 0 {
		return mcp.NewToolResultError("either url, or job and a positive build number, are required"), nil
	}

	snap, err := s.resolver.Build(ctx, job, number)
	if err != nil {
		return mcp.NewToolResultError(provider.WrapError(err).Error()), nil
	}

	info := BuildInfo{Job: job, BuildSnapshot: snap}
	if stages.IsFailureClass(snap.Status) {
		if text, err := s.provider.FetchConsoleText(ctx, job, number); err == nil {
			info.FailingCommand, _ = loganalyzer.FindFailingCommand(text)
		}
	}

	return jsonResult(info)
}

func (s *Server) handleListRecentBuilds(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	job := request.GetString("job", "")
	if job == "" {
		return mcp.NewToolResultError("job parameter is required"), nil
	}

	snaps, err := s.resolver.RecentBuilds(ctx, job)
	if err != nil {
		return mcp.NewToolResultError(provider.WrapError(err).Error()), nil
	}
	if snaps == nil {
		snaps = []stages.BuildSnapshot{}
	}

	return jsonResult(RecentBuilds{Job: job, Builds: snaps})
}

func (s *Server) handleAnalyzeConsoleLog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := request.GetString("log", "")
	if text == "" {
		return mcp.NewToolResultError("log parameter is required"), nil
	}

	return jsonResult(Analyze(text))
}

// Analyze runs both log analyzers over console text.
func Analyze(text string) LogAnalysis {
	text = sanitize.Clean(text)
	var out LogAnalysis
	out.FailedStage, _ = loganalyzer.FindFailedStage(text)
	out.FailingCommand, _ = loganalyzer.FindFailingCommand(text)
	return out
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
