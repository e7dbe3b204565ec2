// Copyright (c) 2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package mcp exposes the workspace access layer as MCP tools and
// resources.  This layer owns argument parsing, policy gating and
// response formatting; all workspace semantics live in the provider.
package mcp

// In this file: MCP server construction and transport management.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"
	"golang.org/x/time/rate"

	"github.com/rusq/slackmcp/internal/network"
	"github.com/rusq/slackmcp/internal/provider"
)

const (
	serverName    = "slackmcp"
	serverVersion = "1.0.0"
)

// Transport selects how the MCP server communicates with its client.
type Transport string

const (
	// TransportStdio uses stdin/stdout for communication (default, suitable
	// for local agent integrations such as Claude Desktop).
	TransportStdio Transport = "stdio"
	// TransportHTTP uses Streamable HTTP transport (suitable for remote
	// agents or when multiple concurrent clients are needed).
	TransportHTTP Transport = "http"
)

// Config holds the tool gating and behaviour policies.  Zero value means
// everything optional is off: posting disabled, no unfurling, no
// mark-as-read, channel management tools hidden.
type Config struct {
	// PostPolicy gates conversations_add_message: empty disables the tool,
	// "true"/"1" allows all channels, a comma-separated list of channel
	// IDs allows only those, and a "!"-prefixed list allows all but those.
	PostPolicy string
	// UnfurlPolicy controls link previews on posted messages: "yes" always,
	// empty/"no" never, or a comma-separated domain allowlist.
	UnfurlPolicy string
	// MarkAsRead marks the conversation read after a successful post.
	MarkAsRead bool
	// ChannelTools enables the channel management tools (channels_create,
	// channels_invite_users, channels_remove_users).
	ChannelTools bool
}

// Server wraps an MCP server and the workspace provider.
type Server struct {
	mcp    *mcpsrv.MCPServer
	prov   *provider.Provider
	cfg    Config
	logger *slog.Logger

	// per-tier pacing of the read tools; limiters are shared across
	// concurrent tool calls.
	histLim   *rate.Limiter
	searchLim *rate.Limiter
}

// New creates a new MCP server backed by the given provider.  The server
// is populated with all available tools and resources but does not start
// listening until one of the Serve* methods is called.
func New(prov *provider.Provider, cfg Config, lg *slog.Logger) *Server {
	if lg == nil {
		lg = slog.Default()
	}
	s := &Server{
		prov:      prov,
		cfg:       cfg,
		logger:    lg,
		histLim:   network.NewLimiter(network.TierHistory, 1),
		searchLim: network.NewLimiter(network.TierSearch, 1),
	}

	mcpServer := mcpsrv.NewMCPServer(
		serverName,
		serverVersion,
		mcpsrv.WithInstructions(s.instructions()),
		mcpsrv.WithResourceCapabilities(false, true),
	)

	for _, t := range s.tools() {
		mcpServer.AddTool(t.Tool, t.Handler)
	}
	s.mcp = mcpServer
	s.registerResources()
	return s
}

// instructions returns the server instructions that describe the
// workspace and the available tools to the connecting agent.
func (s *Server) instructions() string {
	posting := "disabled"
	if s.cfg.PostPolicy != "" {
		posting = "enabled (policy applies)"
	}
	channelMgmt := "disabled"
	if s.cfg.ChannelTools {
		channelMgmt = "enabled"
	}
	return fmt.Sprintf(`You are connected to the Slack workspace %q.

Available tools allow you to:
- Read channel and DM history (conversations_history) and thread replies (conversations_replies)
- Search messages across the workspace (conversations_search_messages)
- List channels, DMs and group DMs (channels_list)
- Refresh the cached workspace directory (directory_refresh)
- Post messages (conversations_add_message): %s
- Manage channels (channels_create, channels_invite_users, channels_remove_users): %s

Channels may be referenced by ID (C..., D..., G...), by #name, or by @username for DMs.
Users may be referenced by ID (U..., W...), by @handle, or as <@U...> mentions.
Message timestamps use Slack's format (Unix epoch as a decimal string, e.g. "1609459200.000001").
History limits accept a count ("50"), a time window ("1d", "2w", "3m", "1q"), or a pagination cursor.`,
		s.prov.Workspace(), posting, channelMgmt)
}

// ServeStdio runs the MCP server over stdin/stdout until ctx is cancelled.
// This is the standard transport used by local agent integrations.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := mcpsrv.NewStdioServer(s.mcp)
	s.logger.InfoContext(ctx, "mcp server listening on stdio")
	if err := srv.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("mcp stdio server error: %w", err)
	}
	return nil
}

// ServeHTTP runs the MCP server as a Streamable HTTP server on addr until
// ctx is cancelled.  addr should be a host:port string such as "127.0.0.1:13080".
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	httpSrv := &http.Server{Addr: addr}
	streamSrv := mcpsrv.NewStreamableHTTPServer(s.mcp,
		mcpsrv.WithStreamableHTTPServer(httpSrv),
	)

	s.logger.InfoContext(ctx, "mcp server listening on http", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := streamSrv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("mcp http server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.InfoContext(ctx, "mcp server shutting down")
		if err := streamSrv.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("mcp http server shutdown error: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// tools returns all MCP tools that this server exposes.  The channel
// management tools are only present when enabled by policy.
func (s *Server) tools() []mcpsrv.ServerTool {
	tt := []mcpsrv.ServerTool{
		s.toolConversationsHistory(),
		s.toolConversationsReplies(),
		s.toolConversationsAddMessage(),
		s.toolConversationsSearch(),
		s.toolChannelsList(),
		s.toolDirectoryRefresh(),
	}
	if s.cfg.ChannelTools {
		tt = append(tt,
			s.toolChannelsCreate(),
			s.toolChannelsInviteUsers(),
			s.toolChannelsRemoveUsers(),
		)
	}
	return tt
}

// resultText is a helper that wraps text in a successful CallToolResult.
func resultText(text string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(text)
}

// resultErr is a helper that wraps an error in a CallToolResult with IsError=true.
func resultErr(err error) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(err.Error())},
		IsError: true,
	}
}

// resultJSON is a helper that serialises v to JSON and returns a CallToolResult.
func resultJSON(v any) (*mcplib.CallToolResult, error) {
	return mcplib.NewToolResultJSON(v)
}

// stringArg extracts a named string argument from a tool call request.
// Returns ("", false) if the argument is absent or not a string.
func stringArg(req mcplib.CallToolRequest, name string) (string, bool) {
	args := req.GetArguments()
	if args == nil {
		return "", false
	}
	v, ok := args[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// intArg extracts a named int argument from a tool call request.  The MCP
// protocol serialises numbers as float64, so we convert accordingly.
func intArg(req mcplib.CallToolRequest, name string, defaultVal int) int {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	v, ok := args[name]
	if !ok {
		return defaultVal
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return defaultVal
}

// boolArg extracts a named bool argument from a tool call request.
func boolArg(req mcplib.CallToolRequest, name string, defaultVal bool) bool {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	v, ok := args[name]
	if !ok {
		return defaultVal
	}
	b, ok := v.(bool)
	if !ok {
		return defaultVal
	}
	return b
}

// tokenClassArg extracts the optional token_type argument and validates it
// against the per-tool default.
func tokenClassArg(req mcplib.CallToolRequest, def provider.TokenClass) (provider.TokenClass, error) {
	raw, _ := stringArg(req, "token_type")
	return provider.ParseTokenClass(raw, def)
}
