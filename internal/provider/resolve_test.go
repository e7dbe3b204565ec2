package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/slack"
)

// fixture directory used by the resolution tests.
var (
	testUsers = []User{
		{ID: "U0ALICE01", Name: "alice", RealName: "Alice Liddell"},
		{ID: "U0BOB0001", Name: "bob", RealName: "Bob the Builder"},
	}
	testChannels = []Channel{
		{ID: "C0GENERAL", Name: "#general", Topic: "company wide"},
		{ID: "C0PRIVATE", Name: "#ops", IsPrivate: true},
		{ID: "G0SHADOW1", Name: "#shadow", IsPrivate: true},
		{ID: "C0SHADOW2", Name: "#shadow"}, // public twin of G0SHADOW1
		{ID: "D0ALICEDM", Name: "@alice", IsIM: true, User: "U0ALICE01", MemberCount: 2},
	}
)

func TestResolveChannel(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{"canonical ID passthrough", "C0GENERAL", "C0GENERAL", false},
		{"unknown ID still passes through", "C0UNKNOWN", "C0UNKNOWN", false},
		{"hash name", "#general", "C0GENERAL", false},
		{"bare name", "general", "C0GENERAL", false},
		{"private by name", "#ops", "C0PRIVATE", false},
		{"dm by counterpart", "@alice", "D0ALICEDM", false},
		{"collision prefers public", "#shadow", "C0SHADOW2", false},
		{"surrounding whitespace", "  #general ", "C0GENERAL", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, _ := newTestProvider(t)
			seedDirectory(p, testUsers, testChannels)

			got, err := p.ResolveChannel(t.Context(), tt.ref)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveChannel_refreshOnMiss(t *testing.T) {
	p, mPrim, _ := newTestProvider(t)
	seedDirectory(p, testUsers, testChannels)

	// The snapshot is stale: #brand-new only exists remotely.  A single
	// forced refresh must pick it up.
	fresh := []slack.Channel{{
		GroupConversation: slack.GroupConversation{
			Conversation: slack.Conversation{ID: "C0BRANDNE"},
			Name:         "brand-new",
		},
	}}
	expectFetch(mPrim, nil, fresh)

	id, err := p.ResolveChannel(t.Context(), "#brand-new")
	require.NoError(t, err)
	assert.Equal(t, "C0BRANDNE", id)
}

func TestResolveChannel_notFound(t *testing.T) {
	p, mPrim, _ := newTestProvider(t)
	seedDirectory(p, testUsers, testChannels)

	// One forced refresh happens and still comes up empty.
	expectFetch(mPrim, nil, nil)

	_, err := p.ResolveChannel(t.Context(), "#ghost")
	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "channel", nfe.Kind)
	assert.Equal(t, "#ghost", nfe.Ref)
	assert.Contains(t, err.Error(), "#ghost")
}

func TestResolveUser(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{"canonical ID passthrough", "U0ALICE01", "U0ALICE01", false},
		{"mention", "<@U0BOB0001>", "U0BOB0001", false},
		{"mention with label", "<@U0BOB0001|bob>", "U0BOB0001", false},
		{"handle", "alice", "U0ALICE01", false},
		{"at-handle", "@alice", "U0ALICE01", false},
		{"surrounding whitespace", " @bob  ", "U0BOB0001", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, _ := newTestProvider(t)
			seedDirectory(p, testUsers, testChannels)

			got, err := p.ResolveUser(t.Context(), tt.ref)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveUser_notFound(t *testing.T) {
	p, mPrim, _ := newTestProvider(t)
	seedDirectory(p, testUsers, testChannels)

	expectFetch(mPrim, nil, nil)

	_, err := p.ResolveUser(t.Context(), "@ghost")
	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "user", nfe.Kind)
	assert.Equal(t, "@ghost", nfe.Ref)
}

func TestResolveUser_idempotent(t *testing.T) {
	p, _, _ := newTestProvider(t)
	seedDirectory(p, testUsers, testChannels)

	id, err := p.ResolveUser(t.Context(), "@alice")
	require.NoError(t, err)
	again, err := p.ResolveUser(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestResolveUserList(t *testing.T) {
	t.Run("order preserved, empties skipped", func(t *testing.T) {
		p, _, _ := newTestProvider(t)
		seedDirectory(p, testUsers, testChannels)

		ids, err := p.ResolveUserList(t.Context(), "@bob, ,U0ALICE01,, <@U0BOB0001>")
		require.NoError(t, err)
		assert.Equal(t, []string{"U0BOB0001", "U0ALICE01", "U0BOB0001"}, ids)
	})
	t.Run("first bad segment fails the list", func(t *testing.T) {
		p, mPrim, _ := newTestProvider(t)
		seedDirectory(p, testUsers, testChannels)
		expectFetch(mPrim, nil, nil)

		ids, err := p.ResolveUserList(t.Context(), "@alice,@ghost,@bob")
		var nfe *NotFoundError
		require.ErrorAs(t, err, &nfe)
		assert.Equal(t, "@ghost", nfe.Ref)
		assert.Nil(t, ids)
	})
}
