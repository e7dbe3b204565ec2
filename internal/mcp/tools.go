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

// In this file: MCP tool definitions and handler implementations.

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"

	"github.com/rusq/slack"

	"github.com/rusq/slackmcp/internal/format"
	"github.com/rusq/slackmcp/internal/provider"
	"github.com/rusq/slackmcp/internal/structures"
)

const (
	defHistoryCount = 100
	minHistoryCount = 1
	maxHistoryCount = 999

	defSearchCount = 20
	maxSearchCount = 100

	defListCount = 100
	maxListCount = 999
)

// convertMessage maps an API message to a CSV row, resolving the author
// against the directory.  Bot messages without a user record fall back to
// the message's own username.
func (s *Server) convertMessage(msg slack.Message, channelID string) format.Message {
	userName, realName := msg.User, msg.User
	if u, ok := s.prov.Directory().UserByID(msg.User); ok {
		userName, realName = u.Name, u.RealName
	} else if msg.SubType == "bot_message" && msg.Username != "" {
		userName, realName = msg.Username, msg.Username
	}

	timeStr, err := format.SlackTimeISO(msg.Timestamp)
	if err != nil {
		timeStr = ""
	}

	text := msg.Text + format.AttachmentSuffix(msg.Text, msg.Attachments)
	text = format.ProcessText(text)

	reactions := make([]string, 0, len(msg.Reactions))
	for _, r := range msg.Reactions {
		reactions = append(reactions, r.Name+":"+strconv.Itoa(r.Count))
	}

	return format.Message{
		MsgID:     msg.Timestamp,
		UserID:    msg.User,
		UserName:  userName,
		RealName:  realName,
		ChannelID: channelID,
		ThreadTS:  msg.ThreadTimestamp,
		Text:      text,
		Time:      timeStr,
		Reactions: strings.Join(reactions, "|"),
	}
}

// convertMessages converts a page of history messages, skipping activity
// messages (channel_join and friends) unless asked not to.
func (s *Server) convertMessages(msgs []slack.Message, channelID string, includeActivity bool) []format.Message {
	rows := make([]format.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.SubType != "" && m.SubType != "bot_message" && !includeActivity {
			continue
		}
		rows = append(rows, s.convertMessage(m, channelID))
	}
	return rows
}

// parseHistoryLimit combines the cursor and limit arguments: an explicit
// cursor wins, otherwise the limit expression is parsed.
func parseHistoryLimit(req mcplib.CallToolRequest) (provider.Limit, error) {
	if cursor, _ := stringArg(req, "cursor"); cursor != "" {
		return provider.Limit{Kind: provider.LimitCursor, Cursor: cursor, Count: defHistoryCount}, nil
	}
	raw, _ := stringArg(req, "limit")
	return provider.ParseLimit(raw, minHistoryCount, maxHistoryCount)
}

// ─── conversations_history ────────────────────────────────────────────────────

func (s *Server) toolConversationsHistory() mcpsrv.ServerTool {
	tool := mcplib.NewTool("conversations_history",
		mcplib.WithDescription("Get messages from a channel or DM. Returns CSV; the last row carries the pagination cursor when more messages are available."),
		mcplib.WithString("channel_id",
			mcplib.Description("Channel ID (C..., D..., G...), #channel-name, or @username for a DM."),
			mcplib.Required(),
		),
		mcplib.WithString("limit",
			mcplib.Description(`Time window ("1d", "2w", "3m", "1q"), message count ("50"), or a cursor from a previous page. Default "1d".`),
		),
		mcplib.WithString("cursor",
			mcplib.Description("Pagination cursor from the previous page. Overrides limit."),
		),
		mcplib.WithBoolean("include_activity_messages",
			mcplib.Description("Include activity messages such as channel_join (default false)."),
		),
		mcplib.WithString("token_type",
			mcplib.Description(`Credential to act as: "primary" (bot, default) or "elevated" (user).`),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleConversationsHistory}
}

func (s *Server) handleConversationsHistory(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	channelRef, ok := stringArg(req, "channel_id")
	if !ok || channelRef == "" {
		return resultErr(errors.New("conversations_history: channel_id is required")), nil
	}
	class, err := tokenClassArg(req, provider.ClassPrimary)
	if err != nil {
		return resultErr(err), nil
	}
	cl, err := s.prov.Client(class)
	if err != nil {
		return resultErr(err), nil
	}
	channelID, err := s.prov.ResolveChannel(ctx, channelRef)
	if err != nil {
		return resultErr(err), nil
	}
	lim, err := parseHistoryLimit(req)
	if err != nil {
		return resultErr(err), nil
	}

	params := &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Inclusive: false,
		Limit:     lim.Count,
	}
	switch lim.Kind {
	case provider.LimitWindow:
		params.Oldest = structures.FormatSlackTS(lim.Oldest)
		params.Latest = structures.FormatSlackTS(lim.Latest)
	case provider.LimitCursor:
		params.Cursor = lim.Cursor
	}

	if err := s.histLim.Wait(ctx); err != nil {
		return resultErr(err), nil
	}
	resp, err := cl.GetConversationHistoryContext(ctx, params)
	if err != nil {
		return resultErr(fmt.Errorf("conversations_history: %w", err)), nil
	}

	rows := s.convertMessages(resp.Messages, channelID, boolArg(req, "include_activity_messages", false))
	if len(rows) > 0 && resp.HasMore {
		rows[len(rows)-1].Cursor = resp.ResponseMetaData.NextCursor
	}
	return resultText(format.MessagesCSV(rows)), nil
}

// ─── conversations_replies ────────────────────────────────────────────────────

func (s *Server) toolConversationsReplies() mcpsrv.ServerTool {
	tool := mcplib.NewTool("conversations_replies",
		mcplib.WithDescription("Get messages of a thread, including the parent. Returns CSV; the last row carries the pagination cursor when more messages are available."),
		mcplib.WithString("channel_id",
			mcplib.Description("Channel ID (C..., D..., G...), #channel-name, or @username for a DM."),
			mcplib.Required(),
		),
		mcplib.WithString("thread_ts",
			mcplib.Description(`Timestamp of the thread parent message, e.g. "1234567890.123456".`),
			mcplib.Required(),
		),
		mcplib.WithString("limit",
			mcplib.Description(`Time window ("1d", "2w", "3m", "1q"), message count ("50"), or a cursor from a previous page. Default "1d".`),
		),
		mcplib.WithString("cursor",
			mcplib.Description("Pagination cursor from the previous page. Overrides limit."),
		),
		mcplib.WithBoolean("include_activity_messages",
			mcplib.Description("Include activity messages such as channel_join (default false)."),
		),
		mcplib.WithString("token_type",
			mcplib.Description(`Credential to act as: "primary" (bot, default) or "elevated" (user).`),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleConversationsReplies}
}

func (s *Server) handleConversationsReplies(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	channelRef, ok := stringArg(req, "channel_id")
	if !ok || channelRef == "" {
		return resultErr(errors.New("conversations_replies: channel_id is required")), nil
	}
	threadTS, _ := stringArg(req, "thread_ts")
	if err := structures.ValidateThreadTS(threadTS); err != nil {
		return resultErr(fmt.Errorf("conversations_replies: %w", err)), nil
	}
	class, err := tokenClassArg(req, provider.ClassPrimary)
	if err != nil {
		return resultErr(err), nil
	}
	cl, err := s.prov.Client(class)
	if err != nil {
		return resultErr(err), nil
	}
	channelID, err := s.prov.ResolveChannel(ctx, channelRef)
	if err != nil {
		return resultErr(err), nil
	}
	lim, err := parseHistoryLimit(req)
	if err != nil {
		return resultErr(err), nil
	}

	params := &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: threadTS,
		Inclusive: false,
		Limit:     lim.Count,
	}
	switch lim.Kind {
	case provider.LimitWindow:
		params.Oldest = structures.FormatSlackTS(lim.Oldest)
		params.Latest = structures.FormatSlackTS(lim.Latest)
	case provider.LimitCursor:
		params.Cursor = lim.Cursor
	}

	if err := s.histLim.Wait(ctx); err != nil {
		return resultErr(err), nil
	}
	msgs, hasMore, nextCursor, err := cl.GetConversationRepliesContext(ctx, params)
	if err != nil {
		return resultErr(fmt.Errorf("conversations_replies: %w", err)), nil
	}

	rows := s.convertMessages(msgs, channelID, boolArg(req, "include_activity_messages", false))
	if len(rows) > 0 && hasMore {
		rows[len(rows)-1].Cursor = nextCursor
	}
	return resultText(format.MessagesCSV(rows)), nil
}

// ─── conversations_add_message ────────────────────────────────────────────────

func (s *Server) toolConversationsAddMessage() mcpsrv.ServerTool {
	tool := mcplib.NewTool("conversations_add_message",
		mcplib.WithDescription("Post a message to a channel, DM, or thread. Disabled unless the posting policy permits it. Returns the posted message as CSV."),
		mcplib.WithString("channel_id",
			mcplib.Description("Channel ID (C..., D..., G...), #channel-name, or @username for a DM."),
			mcplib.Required(),
		),
		mcplib.WithString("payload",
			mcplib.Description("Message text, markdown or plain."),
			mcplib.Required(),
		),
		mcplib.WithString("thread_ts",
			mcplib.Description(`Thread to reply in, e.g. "1234567890.123456". Omit to post to the channel.`),
		),
		mcplib.WithString("content_type",
			mcplib.Description(`"text/markdown" (default) or "text/plain".`),
		),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleConversationsAddMessage}
}

func (s *Server) handleConversationsAddMessage(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.cfg.PostPolicy == "" {
		return resultErr(errors.New(
			"conversations_add_message is disabled by default to prevent accidental spamming; " +
				"set SLACK_MCP_ADD_MESSAGE_TOOL=true, or to a comma-separated list of allowed channel IDs",
		)), nil
	}
	channelRef, ok := stringArg(req, "channel_id")
	if !ok || channelRef == "" {
		return resultErr(errors.New("conversations_add_message: channel_id is required")), nil
	}
	payload, ok := stringArg(req, "payload")
	if !ok || payload == "" {
		return resultErr(errors.New("conversations_add_message: payload is required")), nil
	}
	threadTS, _ := stringArg(req, "thread_ts")
	if threadTS != "" {
		if err := structures.ValidateThreadTS(threadTS); err != nil {
			return resultErr(fmt.Errorf("conversations_add_message: %w", err)), nil
		}
	}
	contentType, _ := stringArg(req, "content_type")
	if contentType == "" {
		contentType = "text/markdown"
	}
	if contentType != "text/markdown" && contentType != "text/plain" {
		return resultErr(errors.New(`conversations_add_message: content_type must be "text/markdown" or "text/plain"`)), nil
	}

	channelID, err := s.prov.ResolveChannel(ctx, channelRef)
	if err != nil {
		return resultErr(err), nil
	}
	if !postAllowed(s.cfg.PostPolicy, channelID) {
		return resultErr(fmt.Errorf("posting to channel %q is not allowed by policy %q", channelID, s.cfg.PostPolicy)), nil
	}

	cl, err := s.prov.Client(provider.ClassPrimary)
	if err != nil {
		return resultErr(err), nil
	}

	opts := []slack.MsgOption{slack.MsgOptionText(payload, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	if contentType == "text/plain" {
		opts = append(opts, slack.MsgOptionDisableMarkdown())
	}
	if format.UnfurlingEnabled(payload, s.cfg.UnfurlPolicy) {
		opts = append(opts, slack.MsgOptionEnableLinkUnfurl())
	} else {
		opts = append(opts, slack.MsgOptionDisableLinkUnfurl(), slack.MsgOptionDisableMediaUnfurl())
	}

	_, ts, err := cl.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return resultErr(fmt.Errorf("conversations_add_message: %w", err)), nil
	}
	s.logger.InfoContext(ctx, "message posted", "channel", channelID, "ts", ts)

	if s.cfg.MarkAsRead {
		if err := cl.MarkConversationContext(ctx, channelID, ts); err != nil {
			s.logger.WarnContext(ctx, "failed to mark conversation as read", "channel", channelID, "error", err)
		}
	}

	// Echo back the message as the service recorded it.
	resp, err := cl.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Oldest:    ts,
		Latest:    ts,
		Inclusive: true,
		Limit:     1,
	})
	if err != nil {
		return resultErr(fmt.Errorf("conversations_add_message: read back: %w", err)), nil
	}
	rows := s.convertMessages(resp.Messages, channelID, true)
	return resultText(format.MessagesCSV(rows)), nil
}

// postAllowed evaluates the posting policy for a resolved channel ID.  The
// policy is either boolean ("true"/"1"), an allowlist of channel IDs, or a
// blocklist when every entry carries a "!" prefix.
func postAllowed(policy, channelID string) bool {
	if policy == "true" || policy == "1" {
		return true
	}
	var items []string
	for item := range strings.SplitSeq(policy, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return true
	}
	negated := strings.HasPrefix(items[0], "!")
	for _, item := range items {
		if negated {
			if strings.TrimPrefix(item, "!") == channelID {
				return false
			}
		} else if item == channelID {
			return true
		}
	}
	return negated
}

// ─── conversations_search_messages ────────────────────────────────────────────

var threadTSRe = regexp.MustCompile(`thread_ts=([0-9.]+)`)

func (s *Server) toolConversationsSearch() mcpsrv.ServerTool {
	tool := mcplib.NewTool("conversations_search_messages",
		mcplib.WithDescription("Search messages across the workspace with optional filters. Requires the elevated (user) credential. Returns CSV; the last row carries the pagination cursor when more results are available."),
		mcplib.WithString("search_query",
			mcplib.Description("Free-text search query."),
		),
		mcplib.WithString("filter_in_channel",
			mcplib.Description("Restrict results to a channel: ID or #name."),
		),
		mcplib.WithString("filter_in_im_or_mpim",
			mcplib.Description("Restrict results to a DM or group DM with a user: ID or @handle."),
		),
		mcplib.WithString("filter_users_with",
			mcplib.Description("Only threads and DMs that include this user: ID or @handle."),
		),
		mcplib.WithString("filter_users_from",
			mcplib.Description("Only messages authored by this user: ID or @handle."),
		),
		mcplib.WithString("filter_date_before",
			mcplib.Description("Messages before this date (YYYY-MM-DD)."),
		),
		mcplib.WithString("filter_date_after",
			mcplib.Description("Messages after this date (YYYY-MM-DD)."),
		),
		mcplib.WithString("filter_date_on",
			mcplib.Description("Messages on this date (YYYY-MM-DD). Overrides before/after."),
		),
		mcplib.WithString("filter_date_during",
			mcplib.Description(`Messages during a period, e.g. "July", "Yesterday". Overrides before/after.`),
		),
		mcplib.WithBoolean("filter_threads_only",
			mcplib.Description("Only messages that are part of a thread (default false)."),
		),
		mcplib.WithString("cursor",
			mcplib.Description("Pagination cursor from the previous page."),
		),
		mcplib.WithNumber("limit",
			mcplib.Description("Maximum results per page (1-100, default 20)."),
		),
		mcplib.WithString("token_type",
			mcplib.Description(`Credential to act as: "elevated" (user, default) or "primary" (bot).`),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleConversationsSearch}
}

func (s *Server) handleConversationsSearch(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	class, err := tokenClassArg(req, provider.ClassElevated)
	if err != nil {
		return resultErr(err), nil
	}
	cl, err := s.prov.Client(class)
	if err != nil {
		return resultErr(err), nil
	}

	query := s.buildSearchQuery(ctx, req)
	if query == "" {
		return resultErr(errors.New("conversations_search_messages: at least one search parameter is required")), nil
	}

	page := 1
	if cursor, _ := stringArg(req, "cursor"); cursor != "" {
		page, err = decodePageCursor(cursor)
		if err != nil {
			return resultErr(fmt.Errorf("conversations_search_messages: %w", err)), nil
		}
	}
	limit := intArg(req, "limit", defSearchCount)
	limit = max(min(limit, maxSearchCount), 1)

	params := slack.NewSearchParameters()
	params.Count = limit
	params.Page = page
	params.Highlight = false

	if err := s.searchLim.Wait(ctx); err != nil {
		return resultErr(err), nil
	}
	resp, err := cl.SearchMessagesContext(ctx, query, params)
	if err != nil {
		return resultErr(fmt.Errorf("conversations_search_messages: %w", err)), nil
	}

	rows := make([]format.Message, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		rows = append(rows, s.convertSearchMatch(m))
	}
	if len(rows) > 0 && resp.Pagination.Page < resp.Pagination.PageCount {
		rows[len(rows)-1].Cursor = encodePageCursor(resp.Pagination.Page + 1)
	}
	return resultText(format.MessagesCSV(rows)), nil
}

// buildSearchQuery assembles the search modifier string from the filter
// arguments.  Unresolvable references degrade to the raw value rather than
// failing the search.
func (s *Server) buildSearchQuery(ctx context.Context, req mcplib.CallToolRequest) string {
	var parts []string
	if q, _ := stringArg(req, "search_query"); q != "" {
		parts = append(parts, q)
	}
	if boolArg(req, "filter_threads_only", false) {
		parts = append(parts, "is:thread")
	}
	if ref, _ := stringArg(req, "filter_in_channel"); ref != "" {
		name := strings.TrimLeft(ref, "#")
		if id, err := s.prov.ResolveChannel(ctx, ref); err == nil {
			if c, ok := s.prov.Directory().ChannelByID(id); ok {
				name = strings.TrimLeft(c.Name, "#@")
			}
		}
		parts = append(parts, "in:"+name)
	}
	if ref, _ := stringArg(req, "filter_in_im_or_mpim"); ref != "" {
		if id, err := s.prov.ResolveUser(ctx, ref); err == nil {
			parts = append(parts, "in:<@"+id+">")
		} else {
			parts = append(parts, "in:"+ref)
		}
	}
	if ref, _ := stringArg(req, "filter_users_with"); ref != "" {
		if id, err := s.prov.ResolveUser(ctx, ref); err == nil {
			parts = append(parts, "with:<@"+id+">")
		}
	}
	if ref, _ := stringArg(req, "filter_users_from"); ref != "" {
		if id, err := s.prov.ResolveUser(ctx, ref); err == nil {
			parts = append(parts, "from:<@"+id+">")
		}
	}
	// A point-in-time filter supersedes the range filters.
	on, _ := stringArg(req, "filter_date_on")
	during, _ := stringArg(req, "filter_date_during")
	switch {
	case on != "":
		parts = append(parts, "on:"+on)
	case during != "":
		parts = append(parts, "during:"+during)
	default:
		if after, _ := stringArg(req, "filter_date_after"); after != "" {
			parts = append(parts, "after:"+after)
		}
		if before, _ := stringArg(req, "filter_date_before"); before != "" {
			parts = append(parts, "before:"+before)
		}
	}
	return strings.Join(parts, " ")
}

// convertSearchMatch maps a search hit to a CSV row.  Search results carry
// the channel name, not the ID, and the thread parent is only recoverable
// from the permalink.
func (s *Server) convertSearchMatch(m slack.SearchMessage) format.Message {
	userName, realName := m.User, m.User
	if u, ok := s.prov.Directory().UserByID(m.User); ok {
		userName, realName = u.Name, u.RealName
	} else if m.Username != "" {
		userName, realName = m.Username, m.Username
	}

	var threadTS string
	if mm := threadTSRe.FindStringSubmatch(m.Permalink); mm != nil {
		threadTS = mm[1]
	}

	timeStr, err := format.SlackTimeISO(m.Timestamp)
	if err != nil {
		timeStr = ""
	}

	var channelRef string
	if m.Channel.Name != "" {
		channelRef = "#" + m.Channel.Name
	}

	return format.Message{
		MsgID:     m.Timestamp,
		UserID:    m.User,
		UserName:  userName,
		RealName:  realName,
		ChannelID: channelRef,
		ThreadTS:  threadTS,
		Text:      format.ProcessText(m.Text),
		Time:      timeStr,
	}
}

// Search pagination is page-numbered, not cursor-based; the page number
// travels base64-wrapped to look like every other cursor.
func encodePageCursor(page int) string {
	return base64.StdEncoding.EncodeToString([]byte("page:" + strconv.Itoa(page)))
}

func decodePageCursor(cursor string) (int, error) {
	decoded, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("invalid cursor %q", cursor)
	}
	numStr, ok := strings.CutPrefix(string(decoded), "page:")
	if !ok {
		return 0, fmt.Errorf("invalid cursor %q", cursor)
	}
	page, err := strconv.Atoi(numStr)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("invalid cursor %q", cursor)
	}
	return page, nil
}

// ─── channels_list ────────────────────────────────────────────────────────────

func (s *Server) toolChannelsList() mcpsrv.ServerTool {
	tool := mcplib.NewTool("channels_list",
		mcplib.WithDescription("List channels, DMs and group DMs from the cached workspace directory. Returns CSV; the last row carries the pagination cursor when more channels are available."),
		mcplib.WithString("channel_types",
			mcplib.Description(`Comma-separated visibility classes: "public_channel", "private_channel", "im", "mpim". Default: public and private channels.`),
			mcplib.Required(),
		),
		mcplib.WithString("sort",
			mcplib.Description(`"popularity" sorts the page by member count, descending.`),
		),
		mcplib.WithNumber("limit",
			mcplib.Description("Maximum results per page (1-999, default 100)."),
		),
		mcplib.WithString("cursor",
			mcplib.Description("Pagination cursor from the previous page."),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleChannelsList}
}

func (s *Server) handleChannelsList(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if err := s.prov.Directory().Refresh(ctx, false); err != nil {
		return resultErr(fmt.Errorf("channels_list: %w", err)), nil
	}

	rawTypes, _ := stringArg(req, "channel_types")
	valid := map[string]bool{
		provider.VisPublic: true, provider.VisPrivate: true,
		provider.VisIM: true, provider.VisMPIM: true,
	}
	var types []string
	for t := range strings.SplitSeq(rawTypes, ",") {
		if t = strings.TrimSpace(t); valid[t] {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		types = []string{provider.VisPublic, provider.VisPrivate}
	}

	limit := intArg(req, "limit", defListCount)
	limit = max(min(limit, maxListCount), 1)

	all := s.prov.Directory().ChannelsByTypes(types...) // ID-ordered
	start := 0
	if cursor, _ := stringArg(req, "cursor"); cursor != "" {
		if decoded, err := base64.StdEncoding.DecodeString(cursor); err == nil {
			start = len(all)
			for i, c := range all {
				if c.ID > string(decoded) {
					start = i
					break
				}
			}
		}
	}
	end := min(start+limit, len(all))
	page := all[start:end]

	if sortArg, _ := stringArg(req, "sort"); sortArg == "popularity" {
		page = append([]provider.Channel{}, page...)
		sort.SliceStable(page, func(i, j int) bool { return page[i].MemberCount > page[j].MemberCount })
	}

	rows := make([]format.Channel, 0, len(page))
	for _, c := range page {
		rows = append(rows, format.Channel{
			ID:          c.ID,
			Name:        c.Name,
			Topic:       c.Topic,
			Purpose:     c.Purpose,
			MemberCount: c.MemberCount,
		})
	}
	if len(rows) > 0 && end < len(all) {
		rows[len(rows)-1].Cursor = base64.StdEncoding.EncodeToString([]byte(all[end-1].ID))
	}
	return resultText(format.ChannelsCSV(rows)), nil
}

// ─── directory_refresh ────────────────────────────────────────────────────────

func (s *Server) toolDirectoryRefresh() mcpsrv.ServerTool {
	tool := mcplib.NewTool("directory_refresh",
		mcplib.WithDescription("Force a refresh of the cached workspace directory of users and channels. Use when a recently created channel or user is not found."),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleDirectoryRefresh}
}

func (s *Server) handleDirectoryRefresh(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	dir := s.prov.Directory()
	if err := dir.Refresh(ctx, true); err != nil {
		return resultErr(fmt.Errorf("directory_refresh: %w", err)), nil
	}
	return resultJSON(struct {
		Users    int `json:"users"`
		Channels int `json:"channels"`
	}{
		Users:    len(dir.Users()),
		Channels: len(dir.Channels()),
	})
}

// ─── channels_create ──────────────────────────────────────────────────────────

func (s *Server) toolChannelsCreate() mcpsrv.ServerTool {
	tool := mcplib.NewTool("channels_create",
		mcplib.WithDescription("Create a channel, or adopt it if an identically-named channel managed by this server already exists. Fails without side effects when the name is held by a channel this server does not manage."),
		mcplib.WithString("name",
			mcplib.Description("Channel name: 1-80 characters, lowercase letters, digits, hyphens and underscores."),
			mcplib.Required(),
		),
		mcplib.WithBoolean("private",
			mcplib.Description("Create a private channel (default false)."),
		),
		mcplib.WithString("description",
			mcplib.Description("Channel purpose text."),
		),
		mcplib.WithString("token_type",
			mcplib.Description(`Credential to act as: "primary" (bot, default) or "elevated" (user).`),
		),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleChannelsCreate}
}

func (s *Server) handleChannelsCreate(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name, ok := stringArg(req, "name")
	if !ok || name == "" {
		return resultErr(errors.New("channels_create: name is required")), nil
	}
	class, err := tokenClassArg(req, provider.ClassPrimary)
	if err != nil {
		return resultErr(err), nil
	}
	private := boolArg(req, "private", false)
	description, _ := stringArg(req, "description")

	res, err := s.prov.EnsureManagedChannel(ctx, class, name, private, description)
	if err != nil {
		return resultErr(fmt.Errorf("channels_create: %w", err)), nil
	}
	return resultJSON(struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Purpose     string `json:"purpose,omitempty"`
		Private     bool   `json:"private"`
		Created     bool   `json:"created"`
		MemberCount int    `json:"memberCount,omitempty"`
	}{
		ID:          res.Channel.ID,
		Name:        res.Channel.Name,
		Purpose:     res.Channel.Purpose,
		Private:     res.Channel.IsPrivate,
		Created:     res.IsNew,
		MemberCount: res.Channel.MemberCount,
	})
}

// ─── channels_invite_users ────────────────────────────────────────────────────

func (s *Server) toolChannelsInviteUsers() mcpsrv.ServerTool {
	tool := mcplib.NewTool("channels_invite_users",
		mcplib.WithDescription("Invite users to a channel. Users already in the channel are reported, not treated as an error."),
		mcplib.WithString("channel_id",
			mcplib.Description("Channel ID (C..., G...) or #channel-name."),
			mcplib.Required(),
		),
		mcplib.WithString("user_ids",
			mcplib.Description("Comma-separated user references: IDs (U...), @handles, or <@U...> mentions."),
			mcplib.Required(),
		),
		mcplib.WithString("token_type",
			mcplib.Description(`Credential to act as: "primary" (bot, default) or "elevated" (user).`),
		),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleChannelsInviteUsers}
}

func (s *Server) handleChannelsInviteUsers(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	channelRef, ok := stringArg(req, "channel_id")
	if !ok || channelRef == "" {
		return resultErr(errors.New("channels_invite_users: channel_id is required")), nil
	}
	userRefs, ok := stringArg(req, "user_ids")
	if !ok || strings.TrimSpace(userRefs) == "" {
		return resultErr(errors.New("channels_invite_users: user_ids is required")), nil
	}
	class, err := tokenClassArg(req, provider.ClassPrimary)
	if err != nil {
		return resultErr(err), nil
	}
	cl, err := s.prov.Client(class)
	if err != nil {
		return resultErr(err), nil
	}
	channelID, err := s.prov.ResolveChannel(ctx, channelRef)
	if err != nil {
		return resultErr(err), nil
	}
	userIDs, err := s.prov.ResolveUserList(ctx, userRefs)
	if err != nil {
		return resultErr(fmt.Errorf("channels_invite_users: %w", err)), nil
	}
	if len(userIDs) == 0 {
		return resultErr(errors.New("channels_invite_users: no users to invite")), nil
	}

	if _, err := cl.InviteUsersToConversationContext(ctx, channelID, userIDs...); err != nil {
		if structures.IsSlackResponseError(err, structures.ErrAlreadyInChannel) {
			return resultText(fmt.Sprintf("All of the users are already in channel %s.", channelID)), nil
		}
		return resultErr(fmt.Errorf("channels_invite_users: %w", err)), nil
	}
	s.logger.InfoContext(ctx, "users invited", "channel", channelID, "users", len(userIDs))
	return resultText(fmt.Sprintf("Invited %d user(s) to channel %s: %s.",
		len(userIDs), channelID, strings.Join(userIDs, ", "))), nil
}

// ─── channels_remove_users ────────────────────────────────────────────────────

func (s *Server) toolChannelsRemoveUsers() mcpsrv.ServerTool {
	tool := mcplib.NewTool("channels_remove_users",
		mcplib.WithDescription("Remove users from a channel. Users not in the channel are reported, not treated as an error."),
		mcplib.WithString("channel_id",
			mcplib.Description("Channel ID (C..., G...) or #channel-name."),
			mcplib.Required(),
		),
		mcplib.WithString("user_ids",
			mcplib.Description("Comma-separated user references: IDs (U...), @handles, or <@U...> mentions."),
			mcplib.Required(),
		),
		mcplib.WithString("token_type",
			mcplib.Description(`Credential to act as: "primary" (bot, default) or "elevated" (user).`),
		),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleChannelsRemoveUsers}
}

func (s *Server) handleChannelsRemoveUsers(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	channelRef, ok := stringArg(req, "channel_id")
	if !ok || channelRef == "" {
		return resultErr(errors.New("channels_remove_users: channel_id is required")), nil
	}
	userRefs, ok := stringArg(req, "user_ids")
	if !ok || strings.TrimSpace(userRefs) == "" {
		return resultErr(errors.New("channels_remove_users: user_ids is required")), nil
	}
	class, err := tokenClassArg(req, provider.ClassPrimary)
	if err != nil {
		return resultErr(err), nil
	}
	cl, err := s.prov.Client(class)
	if err != nil {
		return resultErr(err), nil
	}
	channelID, err := s.prov.ResolveChannel(ctx, channelRef)
	if err != nil {
		return resultErr(err), nil
	}
	userIDs, err := s.prov.ResolveUserList(ctx, userRefs)
	if err != nil {
		return resultErr(fmt.Errorf("channels_remove_users: %w", err)), nil
	}
	if len(userIDs) == 0 {
		return resultErr(errors.New("channels_remove_users: no users to remove")), nil
	}

	// Removal is per-user on the wire; partial failure reports what
	// happened to each user.
	var removed, skipped []string
	for _, uid := range userIDs {
		if err := cl.KickUserFromConversationContext(ctx, channelID, uid); err != nil {
			if structures.IsSlackResponseError(err, structures.ErrNotInChannel) {
				skipped = append(skipped, uid)
				continue
			}
			return resultErr(fmt.Errorf("channels_remove_users: removing %s: %w", uid, err)), nil
		}
		removed = append(removed, uid)
	}
	s.logger.InfoContext(ctx, "users removed", "channel", channelID, "removed", len(removed), "skipped", len(skipped))

	var sb strings.Builder
	fmt.Fprintf(&sb, "Removed %d user(s) from channel %s.", len(removed), channelID)
	if len(skipped) > 0 {
		fmt.Fprintf(&sb, " Not in channel: %s.", strings.Join(skipped, ", "))
	}
	return resultText(sb.String()), nil
}
