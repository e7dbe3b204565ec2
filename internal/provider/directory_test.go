package provider

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/rusq/slack"

	"github.com/rusq/slackmcp/internal/client/mock_client"
)

// newTestDirectory returns a directory over a mocked client, with disk
// persistence disabled.
func newTestDirectory(t *testing.T) (*Directory, *mock_client.MockSlack) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := mock_client.NewMockSlack(ctrl)
	return newDirectory(m, "", "", slog.Default()), m
}

func slackUser(id, name, realName string) slack.User {
	return slack.User{ID: id, Name: name, RealName: realName}
}

func TestDirectory_RefreshNoopWhenReady(t *testing.T) {
	d, _ := newTestDirectory(t)
	d.snap.Store(buildSnapshot(testUsers, testChannels))

	// No expectations are set: any remote call fails the test.
	require.NoError(t, d.Refresh(t.Context(), false))
	assert.True(t, d.Ready())
}

func TestDirectory_RefreshFetches(t *testing.T) {
	d, m := newTestDirectory(t)
	require.False(t, d.Ready())

	expectFetch(m, []slack.User{
		slackUser("U0ALICE01", "alice", "Alice Liddell"),
	}, []slack.Channel{
		slackChan("C0GENERAL", "general", "U0ALICE01", "the one and only", false),
	})

	require.NoError(t, d.Refresh(t.Context(), false))
	require.True(t, d.Ready())

	u, ok := d.UserByHandle("alice")
	require.True(t, ok)
	assert.Equal(t, "U0ALICE01", u.ID)

	c, ok := d.ChannelByID("C0GENERAL")
	require.True(t, ok)
	assert.Equal(t, "#general", c.Name)
	assert.Equal(t, "the one and only", c.Purpose)
}

func TestDirectory_RefreshForceReplaces(t *testing.T) {
	d, m := newTestDirectory(t)
	d.snap.Store(buildSnapshot(testUsers, testChannels))

	expectFetch(m, []slack.User{
		slackUser("U0CAROL01", "carol", "Carol Danvers"),
	}, nil)

	require.NoError(t, d.Refresh(t.Context(), true))

	// The snapshot is replaced wholesale: old entries are gone.
	_, ok := d.UserByHandle("alice")
	assert.False(t, ok)
	_, ok = d.ChannelByID("C0GENERAL")
	assert.False(t, ok)
	u, ok := d.UserByHandle("carol")
	require.True(t, ok)
	assert.Equal(t, "U0CAROL01", u.ID)
}

func TestDirectory_FailedFetchKeepsSnapshot(t *testing.T) {
	d, m := newTestDirectory(t)
	d.snap.Store(buildSnapshot(testUsers, testChannels))

	wantErr := errors.New("wire fell out")
	m.EXPECT().GetUsersContext(gomock.Any()).Return(nil, wantErr)

	err := d.Refresh(t.Context(), true)
	require.ErrorIs(t, err, wantErr)

	// The previous snapshot survives a failed refresh.
	u, ok := d.UserByHandle("alice")
	require.True(t, ok)
	assert.Equal(t, "U0ALICE01", u.ID)
}

func TestDirectory_FetchFollowsCursors(t *testing.T) {
	d, m := newTestDirectory(t)

	m.EXPECT().GetUsersContext(gomock.Any()).Return(nil, nil)
	// Public channels arrive in two pages; the other classes are empty.
	gomock.InOrder(
		m.EXPECT().GetConversationsContext(gomock.Any(), gomock.Any()).Return(nil, "", nil).Times(2), // mpim, im
		m.EXPECT().GetConversationsContext(gomock.Any(), gomock.Any()).
			Return([]slack.Channel{slackChan("C0PAGEONE", "page-one", "", "", false)}, "NEXT", nil),
		m.EXPECT().GetConversationsContext(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, params *slack.GetConversationsParameters) ([]slack.Channel, string, error) {
				assert.Equal(t, "NEXT", params.Cursor)
				return []slack.Channel{slackChan("C0PAGETWO", "page-two", "", "", false)}, "", nil
			}),
		m.EXPECT().GetConversationsContext(gomock.Any(), gomock.Any()).Return(nil, "", nil), // private
	)

	require.NoError(t, d.Refresh(t.Context(), true))
	assert.Len(t, d.Channels(), 2)
	_, ok := d.ChannelByID("C0PAGETWO")
	assert.True(t, ok)
}

func TestDirectory_dmNaming(t *testing.T) {
	d, m := newTestDirectory(t)

	dm := slack.Channel{
		GroupConversation: slack.GroupConversation{
			Conversation: slack.Conversation{ID: "D0ALICEDM", IsIM: true, User: "U0ALICE01"},
		},
	}
	expectFetch(m, []slack.User{slackUser("U0ALICE01", "alice", "Alice Liddell")}, []slack.Channel{dm})
	require.NoError(t, d.Refresh(t.Context(), true))

	c, ok := d.ChannelByID("D0ALICEDM")
	require.True(t, ok)
	assert.Equal(t, "@alice", c.Name)
	assert.Equal(t, "DM with Alice Liddell", c.Purpose)
	assert.Equal(t, 2, c.MemberCount)

	// The DM is findable under the counterpart handle.
	cc := d.ChannelsByName("@alice")
	require.Len(t, cc, 1)
	assert.Equal(t, "D0ALICEDM", cc[0].ID)
}

func TestDirectory_ChannelsByTypes(t *testing.T) {
	d, _ := newTestDirectory(t)
	d.snap.Store(buildSnapshot(testUsers, testChannels))

	pub := d.ChannelsByTypes(VisPublic)
	for _, c := range pub {
		assert.Equal(t, VisPublic, c.Visibility())
	}
	assert.Len(t, pub, 2) // general and the public shadow twin

	both := d.ChannelsByTypes(VisPublic, VisPrivate)
	assert.Len(t, both, 4)

	ims := d.ChannelsByTypes(VisIM)
	require.Len(t, ims, 1)
	assert.Equal(t, "D0ALICEDM", ims[0].ID)
}

func TestChannel_Visibility(t *testing.T) {
	assert.Equal(t, VisPublic, Channel{}.Visibility())
	assert.Equal(t, VisPrivate, Channel{IsPrivate: true}.Visibility())
	assert.Equal(t, VisMPIM, Channel{IsMPIM: true, IsPrivate: true}.Visibility())
	assert.Equal(t, VisIM, Channel{IsIM: true}.Visibility())
}
