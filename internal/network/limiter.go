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

// Package network paces outgoing Slack Web API calls.  It deliberately does
// not retry: transient errors surface to the caller unchanged, retry policy
// belongs to the transport layer.
package network

import (
	"time"

	"golang.org/x/time/rate"
)

// Tier is a Slack Web API rate limit tier, expressed in requests per
// minute: https://api.slack.com/docs/rate-limits
type Tier int

// Tiers of the API methods this server calls.
const (
	// TierListing covers users.list and conversations.list (Tier 2).
	// The directory fetch pages through these in a tight loop, so this
	// is the tier that actually gets hit.
	TierListing Tier = 20
	// TierHistory covers conversations.history and .replies (Tier 3).
	TierHistory Tier = 50
	// TierSearch covers search.messages (Tier 2).
	TierSearch Tier = 20
)

// NewLimiter returns a limiter pacing calls at the tier's per-minute rate
// with the given burst.
func NewLimiter(t Tier, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Every(t.interval()), burst)
}

func (t Tier) interval() time.Duration {
	return time.Minute / time.Duration(t)
}
