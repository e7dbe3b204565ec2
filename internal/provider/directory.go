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

// In this file: the directory cache of workspace users and channels.

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rusq/slack"

	"github.com/rusq/slackmcp/internal/cache"
	"github.com/rusq/slackmcp/internal/client"
	"github.com/rusq/slackmcp/internal/network"
)

// Visibility classes of a channel, matching the remote service's
// conversation types.
const (
	VisPublic  = "public_channel"
	VisPrivate = "private_channel"
	VisIM      = "im"
	VisMPIM    = "mpim"
)

// AllVisibilities lists every visibility class, in fetch order.
var AllVisibilities = []string{VisMPIM, VisIM, VisPublic, VisPrivate}

// User is a directory entry for a workspace member.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"realName,omitempty"`
}

// Channel is a directory entry for a conversation.  Name carries the
// display form: "#name" for channels, "@counterpart" for DMs and group
// DMs.
type Channel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Topic       string `json:"topic,omitempty"`
	Purpose     string `json:"purpose,omitempty"`
	MemberCount int    `json:"memberCount,omitempty"`
	Creator     string `json:"creator,omitempty"`
	IsIM        bool   `json:"im,omitempty"`
	IsMPIM      bool   `json:"mpim,omitempty"`
	IsPrivate   bool   `json:"private,omitempty"`
	User        string `json:"user,omitempty"` // DM counterpart user ID
}

// Visibility returns the visibility class of the channel.
func (c Channel) Visibility() string {
	switch {
	case c.IsIM:
		return VisIM
	case c.IsMPIM:
		return VisMPIM
	case c.IsPrivate:
		return VisPrivate
	default:
		return VisPublic
	}
}

// snapshot is a point-in-time view of the workspace directory.  It is
// immutable once built: consumers may read its maps without locking.
type snapshot struct {
	users       map[string]User
	userHandles map[string]string // handle -> ID
	channels    map[string]Channel
	chanNames   map[string][]string // bare name -> IDs (may collide across visibility classes)
}

// Directory maintains the users and channels snapshots.  The snapshot is
// replaced wholesale on refresh, never edited in place; replacement is a
// single atomic pointer swap, so concurrent readers observe either the old
// or the new snapshot in full.
type Directory struct {
	cl client.Slack
	lg *slog.Logger

	usersPath    string // empty disables persistence
	channelsPath string

	fetchMu sync.Mutex // serialises fetches, not reads
	snap    atomic.Pointer[snapshot]
}

const listPageSize = 999

func newDirectory(cl client.Slack, usersPath, channelsPath string, lg *slog.Logger) *Directory {
	return &Directory{
		cl:           cl,
		lg:           lg,
		usersPath:    usersPath,
		channelsPath: channelsPath,
	}
}

// Ready reports whether a snapshot is available.
func (d *Directory) Ready() bool {
	return d.snap.Load() != nil
}

// Refresh populates the directory.  With force=false it is a no-op if a
// snapshot already exists; otherwise it attempts to load the persisted
// snapshot before falling back to a full fetch.  With force=true it always
// fetches from the remote service.  A refresh that fails leaves the
// previous snapshot in place: a partial fetch never replaces a good one.
func (d *Directory) Refresh(ctx context.Context, force bool) error {
	if !force && d.Ready() {
		return nil
	}
	d.fetchMu.Lock()
	defer d.fetchMu.Unlock()
	// Re-check under the lock: a concurrent caller may have finished the
	// initial load already.
	if !force && d.Ready() {
		return nil
	}

	if !force {
		if snap, err := d.loadPersisted(); err == nil {
			d.snap.Store(snap)
			d.lg.InfoContext(ctx, "directory loaded from cache",
				"users", len(snap.users), "channels", len(snap.channels))
			return nil
		} else {
			d.lg.DebugContext(ctx, "directory cache not usable, fetching", "error", err)
		}
	}

	snap, err := d.fetch(ctx)
	if err != nil {
		return fmt.Errorf("directory refresh: %w", err)
	}
	d.snap.Store(snap)
	d.lg.InfoContext(ctx, "directory refreshed",
		"users", len(snap.users), "channels", len(snap.channels))

	d.persist(ctx, snap)
	return nil
}

// fetch retrieves the complete user and channel listings, following
// pagination to completion, and assembles a new snapshot.
func (d *Directory) fetch(ctx context.Context) (*snapshot, error) {
	lim := network.NewLimiter(network.TierListing, 1)

	users, err := d.cl.GetUsersContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	var channels []slack.Channel
	for _, vis := range AllVisibilities {
		params := &slack.GetConversationsParameters{
			Types:           []string{vis},
			Limit:           listPageSize,
			ExcludeArchived: true,
		}
		for {
			if err := lim.Wait(ctx); err != nil {
				return nil, err
			}
			page, next, err := d.cl.GetConversationsContext(ctx, params)
			if err != nil {
				return nil, fmt.Errorf("listing %s conversations: %w", vis, err)
			}
			channels = append(channels, page...)
			if next == "" {
				break
			}
			params.Cursor = next
		}
	}

	uu := make([]User, 0, len(users))
	for _, u := range users {
		uu = append(uu, userFromSlack(u))
	}
	idx := indexUsers(uu)
	cc := make([]Channel, 0, len(channels))
	for _, c := range channels {
		cc = append(cc, channelFromSlack(c, idx))
	}
	return buildSnapshot(uu, cc), nil
}

// loadPersisted reads the snapshot from the two cache files.  Both must be
// present and readable, otherwise the load fails as a whole.
func (d *Directory) loadPersisted() (*snapshot, error) {
	if d.usersPath == "" || d.channelsPath == "" {
		return nil, fmt.Errorf("persistence not configured")
	}
	uu, err := cache.Load[User](d.usersPath)
	if err != nil {
		return nil, err
	}
	cc, err := cache.Load[Channel](d.channelsPath)
	if err != nil {
		return nil, err
	}
	return buildSnapshot(uu, cc), nil
}

// persist is the optional write-through after a successful refresh.
// Failure to write is logged and otherwise ignored: the in-memory snapshot
// is authoritative.
func (d *Directory) persist(ctx context.Context, snap *snapshot) {
	if d.usersPath == "" || d.channelsPath == "" {
		return
	}
	uu := make([]User, 0, len(snap.users))
	for _, u := range snap.users {
		uu = append(uu, u)
	}
	sort.Slice(uu, func(i, j int) bool { return uu[i].ID < uu[j].ID })
	cc := make([]Channel, 0, len(snap.channels))
	for _, c := range snap.channels {
		cc = append(cc, c)
	}
	sort.Slice(cc, func(i, j int) bool { return cc[i].ID < cc[j].ID })

	if err := cache.Save(d.usersPath, uu); err != nil {
		d.lg.WarnContext(ctx, "failed to save users cache", "path", d.usersPath, "error", err)
	}
	if err := cache.Save(d.channelsPath, cc); err != nil {
		d.lg.WarnContext(ctx, "failed to save channels cache", "path", d.channelsPath, "error", err)
	}
}

func buildSnapshot(uu []User, cc []Channel) *snapshot {
	snap := &snapshot{
		users:       make(map[string]User, len(uu)),
		userHandles: make(map[string]string, len(uu)),
		channels:    make(map[string]Channel, len(cc)),
		chanNames:   make(map[string][]string, len(cc)),
	}
	for _, u := range uu {
		snap.users[u.ID] = u
		if u.Name != "" {
			snap.userHandles[u.Name] = u.ID
		}
	}
	for _, c := range cc {
		snap.channels[c.ID] = c
		if name := bareName(c.Name); name != "" {
			snap.chanNames[name] = append(snap.chanNames[name], c.ID)
		}
	}
	return snap
}

// bareName strips the display prefix from a channel name.
func bareName(name string) string {
	if len(name) > 0 && (name[0] == '#' || name[0] == '@') {
		return name[1:]
	}
	return name
}

func userFromSlack(u slack.User) User {
	realName := u.RealName
	if realName == "" {
		realName = u.Profile.RealName
	}
	return User{ID: u.ID, Name: u.Name, RealName: realName}
}

// channelFromSlack maps an API conversation to a directory entry.  DMs are
// named after the counterpart user, group DMs keep their normalized name;
// both get a synthesised purpose, as neither carries one remotely.
func channelFromSlack(c slack.Channel, users map[string]User) Channel {
	name := c.NameNormalized
	if name == "" {
		name = c.Name
	}
	ch := Channel{
		ID:          c.ID,
		Topic:       c.Topic.Value,
		Purpose:     c.Purpose.Value,
		MemberCount: c.NumMembers,
		Creator:     c.Creator,
		IsIM:        c.IsIM,
		IsMPIM:      c.IsMpIM,
		IsPrivate:   c.IsPrivate,
		User:        c.User,
	}
	switch {
	case c.IsIM:
		ch.MemberCount = 2
		if u, ok := users[c.User]; ok {
			ch.Name = "@" + u.Name
			ch.Purpose = "DM with " + u.RealName
		} else {
			ch.Name = "@" + c.User
			ch.Purpose = "DM with " + c.User
		}
		ch.Topic = ""
	case c.IsMpIM:
		ch.Name = "@" + name
		if ch.Purpose == "" {
			ch.Purpose = "Group DM"
		}
		ch.Topic = ""
	default:
		ch.Name = "#" + name
	}
	return ch
}

func indexUsers(uu []User) map[string]User {
	m := make(map[string]User, len(uu))
	for _, u := range uu {
		m[u.ID] = u
	}
	return m
}

// current returns the current snapshot, or an empty one if the directory
// has not been populated yet.
func (d *Directory) current() *snapshot {
	if snap := d.snap.Load(); snap != nil {
		return snap
	}
	return &snapshot{}
}

// UserByID returns a user by canonical ID.
func (d *Directory) UserByID(id string) (User, bool) {
	u, ok := d.current().users[id]
	return u, ok
}

// UserByHandle returns a user by mention handle, without the "@" prefix.
func (d *Directory) UserByHandle(handle string) (User, bool) {
	snap := d.current()
	id, ok := snap.userHandles[handle]
	if !ok {
		return User{}, false
	}
	u, ok := snap.users[id]
	return u, ok
}

// ChannelByID returns a channel by canonical ID.
func (d *Directory) ChannelByID(id string) (Channel, bool) {
	c, ok := d.current().channels[id]
	return c, ok
}

// ChannelsByName returns every channel whose bare name (without the
// display prefix) equals name.  Name uniqueness is only guaranteed within
// a visibility class, so the result may hold entries of different classes.
func (d *Directory) ChannelsByName(name string) []Channel {
	snap := d.current()
	ids := snap.chanNames[bareName(name)]
	cc := make([]Channel, 0, len(ids))
	for _, id := range ids {
		if c, ok := snap.channels[id]; ok {
			cc = append(cc, c)
		}
	}
	return cc
}

// Users returns all users of the current snapshot, ordered by ID.
func (d *Directory) Users() []User {
	snap := d.current()
	uu := make([]User, 0, len(snap.users))
	for _, u := range snap.users {
		uu = append(uu, u)
	}
	sort.Slice(uu, func(i, j int) bool { return uu[i].ID < uu[j].ID })
	return uu
}

// Channels returns all channels of the current snapshot, ordered by ID.
func (d *Directory) Channels() []Channel {
	snap := d.current()
	cc := make([]Channel, 0, len(snap.channels))
	for _, c := range snap.channels {
		cc = append(cc, c)
	}
	sort.Slice(cc, func(i, j int) bool { return cc[i].ID < cc[j].ID })
	return cc
}

// ChannelsByTypes returns channels of the requested visibility classes,
// ordered by ID.
func (d *Directory) ChannelsByTypes(types ...string) []Channel {
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var cc []Channel
	for _, c := range d.Channels() {
		if want[c.Visibility()] {
			cc = append(cc, c)
		}
	}
	return cc
}
