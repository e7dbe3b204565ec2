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

// Package provider implements the workspace access layer: dual-credential
// management, the directory cache of users and channels, reference
// resolution, idempotent ownership-aware channel creation, and the limit
// expression parser.  The MCP tool layer on top of it owns argument
// parsing and response formatting; this package owns the semantics.
package provider

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/rusq/slackmcp/internal/client"
	"github.com/rusq/slackmcp/internal/structures"
)

// Credential slot names, as they appear in startup errors.
const (
	SlotPrimary  = "primary"
	SlotElevated = "elevated"
)

// TokenClass selects which of the two authenticated credentials an
// operation acts as.  It is a two-valued enumeration rather than a
// boolean, should a third class ever be needed.
type TokenClass string

const (
	// ClassPrimary is the bot credential (xoxb), the default for most
	// operations.
	ClassPrimary TokenClass = "primary"
	// ClassElevated is the user credential (xoxp), required for
	// search-class operations.
	ClassElevated TokenClass = "elevated"
)

// ParseTokenClass validates a caller-supplied token class hint.  The empty
// string maps to the provided default.  This is the single validation
// point for token_type parameters: tools must not branch on the raw value
// themselves.
func ParseTokenClass(s string, def TokenClass) (TokenClass, error) {
	switch TokenClass(s) {
	case "":
		return def, nil
	case ClassPrimary:
		return ClassPrimary, nil
	case ClassElevated:
		return ClassElevated, nil
	default:
		return "", &InvalidClassError{Value: s}
	}
}

// Identity is the authenticated identity of a credential slot, captured
// once at startup.
type Identity struct {
	UserID    string
	BotID     string
	TeamID    string
	Team      string
	User      string
	Workspace string
}

// Config is the provider configuration.  Both tokens are mandatory; the
// cache paths are optional (empty disables disk persistence).
type Config struct {
	PrimaryToken  string // bot token (xoxb-...)
	ElevatedToken string // user token (xoxp-...)

	UsersCachePath    string
	ChannelsCachePath string

	Logger *slog.Logger
}

// Provider holds the two authenticated client handles and the directory
// cache.  It is immutable after New, except for the directory snapshot,
// which is replaced atomically; it is safe for concurrent use.
type Provider struct {
	primary  client.Slack
	elevated client.Slack

	primaryID  Identity
	elevatedID Identity

	dir *Directory
	lg  *slog.Logger
}

type options struct {
	primary  client.Slack
	elevated client.Slack
}

type Option func(*options)

// WithClients substitutes the Slack clients instead of dialing with the
// configured tokens.  Both clients are still auth-tested.  Intended for
// testing.
func WithClients(primary, elevated client.Slack) Option {
	return func(o *options) {
		o.primary = primary
		o.elevated = elevated
	}
}

// New validates the credential set, authenticates each slot against the
// workspace and initialises the directory cache.  It is the only
// construction path: no tool operation is reachable before it succeeds.
func New(ctx context.Context, cfg Config, opt ...Option) (*Provider, error) {
	var missing []string
	if cfg.PrimaryToken == "" {
		missing = append(missing, SlotPrimary)
	}
	if cfg.ElevatedToken == "" {
		missing = append(missing, SlotElevated)
	}
	if len(missing) > 0 {
		return nil, &MissingCredentialsError{Slots: missing}
	}

	lg := cfg.Logger
	if lg == nil {
		lg = slog.Default()
	}

	var opts options
	for _, o := range opt {
		o(&opts)
	}

	p := &Provider{
		primary:  opts.primary,
		elevated: opts.elevated,
		lg:       lg,
	}

	// Each slot authenticates independently, so that a rejection can be
	// attributed to the exact credential.
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		id, cl, err := authenticate(gctx, p.primary, cfg.PrimaryToken)
		if err != nil {
			return &AuthRejectedError{Slot: SlotPrimary, Err: err}
		}
		p.primary, p.primaryID = cl, id
		return nil
	})
	eg.Go(func() error {
		id, cl, err := authenticate(gctx, p.elevated, cfg.ElevatedToken)
		if err != nil {
			return &AuthRejectedError{Slot: SlotElevated, Err: err}
		}
		p.elevated, p.elevatedID = cl, id
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	lg.InfoContext(ctx, "authenticated",
		"workspace", p.primaryID.Workspace,
		"primary_user", p.primaryID.User,
		"elevated_user", p.elevatedID.User,
	)

	p.dir = newDirectory(p.primary, cfg.UsersCachePath, cfg.ChannelsCachePath, lg)
	return p, nil
}

// authenticate dials the workspace with the token (unless cl is already
// set) and captures the authenticated identity.
func authenticate(ctx context.Context, cl client.Slack, token string) (Identity, client.Slack, error) {
	if cl == nil {
		ccl, err := client.New(ctx, token)
		if err != nil {
			return Identity{}, nil, err
		}
		cl = ccl
	}
	wi, err := cl.AuthTestContext(ctx)
	if err != nil {
		return Identity{}, nil, err
	}
	workspace, err := structures.ExtractWorkspace(wi.URL)
	if err != nil {
		return Identity{}, nil, fmt.Errorf("auth response: %w", err)
	}
	return Identity{
		UserID:    wi.UserID,
		BotID:     wi.BotID,
		TeamID:    wi.TeamID,
		Team:      wi.Team,
		User:      wi.User,
		Workspace: workspace,
	}, cl, nil
}

// Client is the credential selector: a pure mapping from the token class
// to the authenticated client handle.  No network activity.
func (p *Provider) Client(class TokenClass) (client.Slack, error) {
	switch class {
	case ClassPrimary:
		return p.primary, nil
	case ClassElevated:
		return p.elevated, nil
	default:
		return nil, &InvalidClassError{Value: string(class)}
	}
}

// Identity returns the authenticated identity for the token class.
func (p *Provider) Identity(class TokenClass) (Identity, error) {
	switch class {
	case ClassPrimary:
		return p.primaryID, nil
	case ClassElevated:
		return p.elevatedID, nil
	default:
		return Identity{}, &InvalidClassError{Value: string(class)}
	}
}

// Workspace returns the workspace name both credentials belong to.
func (p *Provider) Workspace() string {
	return p.primaryID.Workspace
}

// Directory returns the directory cache.
func (p *Provider) Directory() *Directory {
	return p.dir
}
