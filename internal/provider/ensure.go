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

// In this file: idempotent, ownership-aware channel creation.

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rusq/slack"

	"github.com/rusq/slackmcp/internal/structures"
)

// ManagedMarker is embedded in the purpose of every channel this tool
// creates.  A channel is considered managed iff its creator is the acting
// identity AND its purpose contains the marker; either condition alone is
// insufficient.  The marker lives in a human-editable field, which is a
// documented fragility of the convention, not an accident.
const ManagedMarker = "[managed:slackmcp]"

// channelNameRe is the validity check for channel names: lowercase
// letters, digits, hyphens and underscores, at most 80 characters.
var channelNameRe = regexp.MustCompile(`^[a-z0-9_-]{1,80}$`)

// EnsureResult is the outcome of EnsureManagedChannel.
type EnsureResult struct {
	Channel Channel
	IsNew   bool
}

// EnsureManagedChannel implements create-or-adopt semantics for a channel
// name.  If no channel with the name exists in the requested visibility
// class, it is created and stamped with the ownership marker.  If one
// exists and is managed by the acting identity, it is adopted unchanged.
// If one exists but is not managed, the call fails with [NotManagedError]
// and nothing is mutated.  A creation race ("name_taken") is folded into
// the adoption path, never surfaced.
func (p *Provider) EnsureManagedChannel(ctx context.Context, class TokenClass, name string, private bool, description string) (*EnsureResult, error) {
	if !channelNameRe.MatchString(name) {
		return nil, &NameError{
			Name:   name,
			Reason: "must be 1-80 characters: lowercase letters, digits, hyphens and underscores",
		}
	}
	cl, err := p.Client(class)
	if err != nil {
		return nil, err
	}
	ident, err := p.Identity(class)
	if err != nil {
		return nil, err
	}

	existing, found := p.findByNameVis(name, private)
	if !found {
		// The snapshot may predate the channel; ask the remote service
		// before concluding the name is free.
		if err := p.dir.Refresh(ctx, true); err != nil {
			return nil, err
		}
		existing, found = p.findByNameVis(name, private)
	}

	if !found {
		ch, err := cl.CreateConversationContext(ctx, slack.CreateConversationParams{
			ChannelName: name,
			IsPrivate:   private,
		})
		switch {
		case err == nil:
			purpose := ManagedMarker
			if description != "" {
				purpose = description + " " + ManagedMarker
			}
			if _, err := cl.SetPurposeOfConversationContext(ctx, ch.ID, purpose); err != nil {
				return nil, fmt.Errorf("setting purpose of %q: %w", name, err)
			}
			// Make the channel resolvable by name within this session.
			if err := p.dir.Refresh(ctx, true); err != nil {
				p.lg.WarnContext(ctx, "directory refresh after create failed", "channel", name, "error", err)
			}
			created, ok := p.dir.ChannelByID(ch.ID)
			if !ok {
				created = channelFromSlack(*ch, nil)
				created.Purpose = purpose
			}
			p.lg.InfoContext(ctx, "channel created", "channel", name, "id", ch.ID, "private", private)
			return &EnsureResult{Channel: created, IsNew: true}, nil

		case structures.IsSlackResponseError(err, structures.ErrNameTaken):
			// Lost the race to another creator: treat as pre-existing.
			if err := p.dir.Refresh(ctx, true); err != nil {
				return nil, err
			}
			existing, found = p.findByNameVis(name, private)
			if !found {
				return nil, fmt.Errorf("channel name %q is taken, but the channel is not listable: %w", name, err)
			}

		default:
			return nil, fmt.Errorf("creating channel %q: %w", name, err)
		}
	}

	// Ownership check of the pre-existing channel.
	info, err := cl.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
		ChannelID: existing.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("channel info for %q: %w", existing.ID, err)
	}
	if info.Creator != ident.UserID || !strings.Contains(info.Purpose.Value, ManagedMarker) {
		return nil, &NotManagedError{Name: name, ID: existing.ID}
	}
	p.lg.InfoContext(ctx, "channel adopted", "channel", name, "id", existing.ID)
	return &EnsureResult{Channel: channelFromSlack(*info, nil), IsNew: false}, nil
}

// findByNameVis finds a channel by bare name within a visibility class
// (public or private); DMs and group DMs never participate in creation.
func (p *Provider) findByNameVis(name string, private bool) (Channel, bool) {
	want := VisPublic
	if private {
		want = VisPrivate
	}
	for _, c := range p.dir.ChannelsByName(name) {
		if c.Visibility() == want {
			return c, true
		}
	}
	return Channel{}, false
}
