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

// Package format renders messages, channels and users into the CSV and
// plain-text shapes returned to tool callers.
package format

import (
	"encoding/csv"
	"strconv"
	"strings"
)

// Message is one row of message CSV output.  Cursor is set only on the
// last row of a page that has a continuation.
type Message struct {
	MsgID     string
	UserID    string
	UserName  string
	RealName  string
	ChannelID string
	ThreadTS  string
	Text      string
	Time      string
	Reactions string
	Cursor    string
}

// Channel is one row of channel CSV output.
type Channel struct {
	ID          string
	Name        string
	Topic       string
	Purpose     string
	MemberCount int
	Cursor      string
}

// User is one row of user CSV output.
type User struct {
	UserID   string
	UserName string
	RealName string
}

// Column headers.  The casing is part of the tool contract.
var (
	messageHeader = []string{"msgID", "userID", "userName", "realName", "channelID", "ThreadTs", "text", "time", "reactions", "cursor"}
	channelHeader = []string{"id", "name", "topic", "purpose", "memberCount", "cursor"}
	userHeader    = []string{"userID", "userName", "realName"}
)

// MessagesCSV renders messages as CSV with a header row.  An empty input
// yields an empty string, not a bare header.
func MessagesCSV(mm []Message) string {
	if len(mm) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(mm))
	for _, m := range mm {
		rows = append(rows, []string{
			m.MsgID, m.UserID, m.UserName, m.RealName, m.ChannelID,
			m.ThreadTS, m.Text, m.Time, m.Reactions, m.Cursor,
		})
	}
	return renderCSV(messageHeader, rows)
}

// ChannelsCSV renders channels as CSV with a header row.
func ChannelsCSV(cc []Channel) string {
	if len(cc) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(cc))
	for _, c := range cc {
		rows = append(rows, []string{
			c.ID, c.Name, c.Topic, c.Purpose, strconv.Itoa(c.MemberCount), c.Cursor,
		})
	}
	return renderCSV(channelHeader, rows)
}

// UsersCSV renders users as CSV with a header row.
func UsersCSV(uu []User) string {
	if len(uu) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(uu))
	for _, u := range uu {
		rows = append(rows, []string{u.UserID, u.UserName, u.RealName})
	}
	return renderCSV(userHeader, rows)
}

func renderCSV(header []string, rows [][]string) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write(header)
	_ = w.WriteAll(rows) // flushes
	return sb.String()
}
