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
package provider

// In this file: resolution of user-supplied references to canonical IDs.

import (
	"context"
	"strings"

	"github.com/rusq/slackmcp/internal/structures"
)

// visibility preference for name collisions across visibility classes.
var visPreference = []string{VisPublic, VisPrivate, VisMPIM, VisIM}

// ResolveChannel resolves a channel reference to a canonical ID.  Accepted
// forms: a canonical ID (returned unchanged), "#name", "@dm-counterpart",
// or a bare name.  When the name is absent from the snapshot, one forced
// refresh is performed before giving up; this covers channels created or
// renamed since the last refresh, and is bounded to a single fallback per
// resolution.
func (p *Provider) ResolveChannel(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if structures.IsChannelID(ref) {
		return ref, nil
	}
	if id, ok := p.lookupChannel(ref); ok {
		return id, nil
	}
	if err := p.dir.Refresh(ctx, true); err != nil {
		return "", err
	}
	if id, ok := p.lookupChannel(ref); ok {
		return id, nil
	}
	return "", &NotFoundError{Kind: "channel", Ref: ref}
}

// lookupChannel finds the channel by name in the current snapshot.  On
// collisions across visibility classes, public wins over private, private
// over group DMs, group DMs over DMs.
func (p *Provider) lookupChannel(ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	matches := p.dir.ChannelsByName(ref)
	if len(matches) == 0 {
		return "", false
	}
	for _, vis := range visPreference {
		for _, c := range matches {
			if c.Visibility() == vis {
				return c.ID, true
			}
		}
	}
	return matches[0].ID, true
}

// ResolveUser resolves a user reference to a canonical ID.  Accepted
// forms: a canonical ID (returned unchanged), an escaped mention
// ("<@U...>"), or a handle with an optional "@" prefix.
func (p *Provider) ResolveUser(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if structures.IsUserID(ref) {
		return ref, nil
	}
	if id, ok := structures.UnwrapMention(ref); ok {
		return id, nil
	}
	handle := strings.TrimPrefix(ref, "@")
	if handle != "" {
		if u, ok := p.dir.UserByHandle(handle); ok {
			return u.ID, nil
		}
		if err := p.dir.Refresh(ctx, true); err != nil {
			return "", err
		}
		if u, ok := p.dir.UserByHandle(handle); ok {
			return u.ID, nil
		}
	}
	return "", &NotFoundError{Kind: "user", Ref: ref}
}

// ResolveUserList resolves a comma-separated list of user references,
// preserving input order.  Empty segments are skipped; the first
// unresolvable segment fails the whole list, naming that segment.
func (p *Provider) ResolveUserList(ctx context.Context, refs string) ([]string, error) {
	var ids []string
	for seg := range strings.SplitSeq(refs, ",") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		id, err := p.ResolveUser(ctx, seg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
