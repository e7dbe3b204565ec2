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

// Package client defines the subset of the Slack Web API that the server
// consumes, and a thin wrapper over the Slack client that captures the
// authenticated identity.
package client

import (
	"context"

	"github.com/rusq/slack"
)

//go:generate mockgen -destination mock_client/mock_client.go . Slack

// Slack is an interface that defines the methods that a Slack client should
// provide.
type Slack interface {
	AuthTestContext(ctx context.Context) (response *slack.AuthTestResponse, err error)
	GetUsersContext(ctx context.Context, options ...slack.GetUsersOption) ([]slack.User, error)
	GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) (channels []slack.Channel, nextCursor string, err error)
	GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error)
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	GetConversationRepliesContext(ctx context.Context, params *slack.GetConversationRepliesParameters) (msgs []slack.Message, hasMore bool, nextCursor string, err error)
	SearchMessagesContext(ctx context.Context, query string, params slack.SearchParameters) (*slack.SearchMessages, error)
	CreateConversationContext(ctx context.Context, params slack.CreateConversationParams) (*slack.Channel, error)
	SetPurposeOfConversationContext(ctx context.Context, channelID, purpose string) (*slack.Channel, error)
	InviteUsersToConversationContext(ctx context.Context, channelID string, users ...string) (*slack.Channel, error)
	KickUserFromConversationContext(ctx context.Context, channelID string, user string) error
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	MarkConversationContext(ctx context.Context, channel, ts string) error
}

var _ Slack = (*Client)(nil)

// Client wraps *slack.Client.  All Slack interface methods are promoted
// from the embedded *slack.Client.  The auth-test response captured on
// initialisation identifies who the client acts as; it is used for channel
// ownership checks.
type Client struct {
	*slack.Client // always set; promotes all Slack API methods

	wi *slack.AuthTestResponse
}

// Wrap wraps a *slack.Client and returns a *Client that implements the
// Slack interface.  Intended for testing.
func Wrap(cl *slack.Client) *Client {
	return &Client{Client: cl}
}

// New creates a new Client for the given token and runs an auth-test to
// verify the token and capture the acting identity.
func New(ctx context.Context, token string) (*Client, error) {
	scl := slack.New(token)
	wi, err := scl.AuthTestContext(ctx)
	if err != nil {
		return nil, err
	}
	return &Client{Client: scl, wi: wi}, nil
}

// AuthTestContext returns the cached workspace information that was
// captured on initialisation.  If the cache is empty it calls the API.
func (c *Client) AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error) {
	if c.wi == nil {
		wi, err := c.Client.AuthTestContext(ctx)
		if err != nil {
			return nil, err
		}
		c.wi = wi
	}
	return c.wi, nil
}
