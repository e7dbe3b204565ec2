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

// Package structures provides functions to parse Slack data types.
package structures

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// channelIDRe matches canonical conversation IDs: public/private
	// channels (C), DMs (D) and group conversations (G).
	channelIDRe = regexp.MustCompile(`^[CDG][A-Z0-9]{7,}$`)
	// userIDRe matches canonical user IDs.  W-prefixed IDs are issued on
	// enterprise grid workspaces.
	userIDRe = regexp.MustCompile(`^[UW][A-Z0-9]{7,}$`)
	// mentionRe matches an escaped mention, i.e. <@U024BE7LH> or
	// <@U024BE7LH|display-name>.
	mentionRe = regexp.MustCompile(`^<@([UW][A-Z0-9]{7,})(?:\|[^>]*)?>$`)
)

// IsChannelID reports whether s is a canonical conversation ID.
func IsChannelID(s string) bool {
	return channelIDRe.MatchString(s)
}

// IsUserID reports whether s is a canonical user ID.
func IsUserID(s string) bool {
	return userIDRe.MatchString(s)
}

// UnwrapMention extracts the user ID from an escaped mention.  It returns
// the input unchanged and false if s is not a mention.
func UnwrapMention(s string) (string, bool) {
	m := mentionRe.FindStringSubmatch(s)
	if m == nil {
		return s, false
	}
	return m[1], true
}

var ErrInvalidDomain = errors.New("invalid domain")

// ExtractWorkspace takes a workspace name or URL and returns the workspace
// name.
func ExtractWorkspace(workspace string) (string, error) {
	if !strings.Contains(workspace, ".slack.com") && !strings.Contains(workspace, ".") {
		return workspace, nil
	}
	if strings.HasPrefix(workspace, "https://") {
		uri, err := url.Parse(workspace)
		if err != nil {
			return "", err
		}
		workspace = uri.Host
	}
	name, domain, found := strings.Cut(workspace, ".")
	if !found {
		return "", errors.New("workspace name is empty")
	}
	if strings.TrimRight(domain, "/") != "slack.com" {
		return "", fmt.Errorf("%s: %w", domain, ErrInvalidDomain)
	}
	return name, nil
}
