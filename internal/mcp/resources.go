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

package mcp

// In this file: MCP resources exposing the workspace directory as CSV.

import (
	"context"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/rusq/slackmcp/internal/format"
)

const mimeCSV = "text/csv"

// registerResources adds the directory resources to the MCP server.  The
// URIs embed the workspace name, e.g. "slack://acme/channels".
func (s *Server) registerResources() {
	ws := s.prov.Workspace()

	channelsURI := fmt.Sprintf("slack://%s/channels", ws)
	s.mcp.AddResource(mcplib.NewResource(channelsURI, "Workspace channels",
		mcplib.WithResourceDescription("Directory of channels, DMs and group DMs of the workspace, as CSV."),
		mcplib.WithMIMEType(mimeCSV),
	), s.handleChannelsResource)

	usersURI := fmt.Sprintf("slack://%s/users", ws)
	s.mcp.AddResource(mcplib.NewResource(usersURI, "Workspace users",
		mcplib.WithResourceDescription("Directory of users of the workspace, as CSV."),
		mcplib.WithMIMEType(mimeCSV),
	), s.handleUsersResource)
}

func (s *Server) handleChannelsResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if err := s.prov.Directory().Refresh(ctx, false); err != nil {
		return nil, fmt.Errorf("channels resource: %w", err)
	}
	var rows []format.Channel
	for _, c := range s.prov.Directory().Channels() {
		rows = append(rows, format.Channel{
			ID:          c.ID,
			Name:        c.Name,
			Topic:       c.Topic,
			Purpose:     c.Purpose,
			MemberCount: c.MemberCount,
		})
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: mimeCSV,
			Text:     format.ChannelsCSV(rows),
		},
	}, nil
}

func (s *Server) handleUsersResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if err := s.prov.Directory().Refresh(ctx, false); err != nil {
		return nil, fmt.Errorf("users resource: %w", err)
	}
	var rows []format.User
	for _, u := range s.prov.Directory().Users() {
		rows = append(rows, format.User{
			UserID:   u.ID,
			UserName: u.Name,
			RealName: u.RealName,
		})
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: mimeCSV,
			Text:     format.UsersCSV(rows),
		},
	}, nil
}
