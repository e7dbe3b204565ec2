package provider

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/rusq/slack"
)

// slackChan builds an API conversation for the ensure tests.
func slackChan(id, name, creator, purpose string, private bool) slack.Channel {
	return slack.Channel{
		GroupConversation: slack.GroupConversation{
			Conversation: slack.Conversation{ID: id, IsPrivate: private},
			Name:         name,
			Creator:      creator,
			Purpose:      slack.Purpose{Value: purpose},
		},
	}
}

func TestEnsureManagedChannel_createsNew(t *testing.T) {
	p, mPrim, _ := newTestProvider(t)
	seedDirectory(p, testUsers, testChannels)

	created := slackChan("C0REPORTS", "reports", "U0PRIMARY", "", false)
	stamped := slackChan("C0REPORTS", "reports", "U0PRIMARY", "daily numbers "+ManagedMarker, false)

	// Pre-create refresh confirms the name is free.
	expectFetch(mPrim, nil, nil)
	mPrim.EXPECT().
		CreateConversationContext(gomock.Any(), slack.CreateConversationParams{ChannelName: "reports"}).
		Return(&created, nil)
	mPrim.EXPECT().
		SetPurposeOfConversationContext(gomock.Any(), "C0REPORTS", "daily numbers "+ManagedMarker).
		Return(&stamped, nil)
	// Post-create refresh makes the channel resolvable by name.
	expectFetch(mPrim, nil, []slack.Channel{stamped})

	res, err := p.EnsureManagedChannel(t.Context(), ClassPrimary, "reports", false, "daily numbers")
	require.NoError(t, err)
	assert.True(t, res.IsNew)
	assert.Equal(t, "C0REPORTS", res.Channel.ID)
	assert.True(t, strings.HasSuffix(res.Channel.Purpose, ManagedMarker))

	id, err := p.ResolveChannel(t.Context(), "#reports")
	require.NoError(t, err)
	assert.Equal(t, "C0REPORTS", id)
}

func TestEnsureManagedChannel_createWithoutDescription(t *testing.T) {
	p, mPrim, _ := newTestProvider(t)
	seedDirectory(p, testUsers, testChannels)

	created := slackChan("C0SCRATCH", "scratch", "U0PRIMARY", "", true)
	stamped := slackChan("C0SCRATCH", "scratch", "U0PRIMARY", ManagedMarker, true)

	expectFetch(mPrim, nil, nil)
	mPrim.EXPECT().
		CreateConversationContext(gomock.Any(), slack.CreateConversationParams{ChannelName: "scratch", IsPrivate: true}).
		Return(&created, nil)
	mPrim.EXPECT().
		SetPurposeOfConversationContext(gomock.Any(), "C0SCRATCH", ManagedMarker).
		Return(&stamped, nil)
	expectFetch(mPrim, nil, []slack.Channel{stamped})

	res, err := p.EnsureManagedChannel(t.Context(), ClassPrimary, "scratch", true, "")
	require.NoError(t, err)
	assert.True(t, res.IsNew)
	assert.Equal(t, ManagedMarker, res.Channel.Purpose)
}

func TestEnsureManagedChannel_adoptsOwned(t *testing.T) {
	p, mPrim, _ := newTestProvider(t)
	owned := Channel{ID: "C0REPORTS", Name: "#reports", Creator: "U0PRIMARY", Purpose: "daily numbers " + ManagedMarker}
	seedDirectory(p, testUsers, append([]Channel{owned}, testChannels...))

	info := slackChan("C0REPORTS", "reports", "U0PRIMARY", "daily numbers "+ManagedMarker, false)
	mPrim.EXPECT().
		GetConversationInfoContext(gomock.Any(), &slack.GetConversationInfoInput{ChannelID: "C0REPORTS"}).
		Return(&info, nil)

	// No create, no purpose write: adoption must not mutate anything.
	res, err := p.EnsureManagedChannel(t.Context(), ClassPrimary, "reports", false, "daily numbers")
	require.NoError(t, err)
	assert.False(t, res.IsNew)
	assert.Equal(t, "C0REPORTS", res.Channel.ID)
}

func TestEnsureManagedChannel_refusesForeign(t *testing.T) {
	tests := []struct {
		name    string
		creator string
		purpose string
	}{
		{"different creator", "U0BOB0001", "daily numbers " + ManagedMarker},
		{"no marker", "U0PRIMARY", "hand-made channel"},
		{"neither", "U0BOB0001", "hand-made channel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, mPrim, _ := newTestProvider(t)
			foreign := Channel{ID: "C0LEGACY1", Name: "#legacy", Creator: tt.creator, Purpose: tt.purpose}
			seedDirectory(p, testUsers, []Channel{foreign})

			info := slackChan("C0LEGACY1", "legacy", tt.creator, tt.purpose, false)
			mPrim.EXPECT().
				GetConversationInfoContext(gomock.Any(), &slack.GetConversationInfoInput{ChannelID: "C0LEGACY1"}).
				Return(&info, nil)

			_, err := p.EnsureManagedChannel(t.Context(), ClassPrimary, "legacy", false, "")
			var nme *NotManagedError
			require.ErrorAs(t, err, &nme)
			assert.Equal(t, "legacy", nme.Name)
			assert.Equal(t, "C0LEGACY1", nme.ID)
		})
	}
}

func TestEnsureManagedChannel_nameTakenRace(t *testing.T) {
	p, mPrim, _ := newTestProvider(t)
	seedDirectory(p, testUsers, nil)

	racing := slackChan("C0RACED01", "raced", "U0PRIMARY", "won the race "+ManagedMarker, false)

	// The name looks free, creation collides, the post-collision refresh
	// reveals a channel we own: the race folds into adoption.
	expectFetch(mPrim, nil, nil)
	mPrim.EXPECT().
		CreateConversationContext(gomock.Any(), slack.CreateConversationParams{ChannelName: "raced"}).
		Return(nil, slack.SlackErrorResponse{Err: "name_taken"})
	expectFetch(mPrim, nil, []slack.Channel{racing})
	mPrim.EXPECT().
		GetConversationInfoContext(gomock.Any(), &slack.GetConversationInfoInput{ChannelID: "C0RACED01"}).
		Return(&racing, nil)

	res, err := p.EnsureManagedChannel(t.Context(), ClassPrimary, "raced", false, "")
	require.NoError(t, err)
	assert.False(t, res.IsNew)
	assert.Equal(t, "C0RACED01", res.Channel.ID)
}

func TestEnsureManagedChannel_visibilityScoped(t *testing.T) {
	// A private channel with the name does not satisfy a public request.
	p, mPrim, _ := newTestProvider(t)
	private := Channel{ID: "G0HIDDEN1", Name: "#split", IsPrivate: true, Creator: "U0PRIMARY", Purpose: ManagedMarker}
	seedDirectory(p, testUsers, []Channel{private})

	created := slackChan("C0SPLIT01", "split", "U0PRIMARY", "", false)
	stamped := slackChan("C0SPLIT01", "split", "U0PRIMARY", ManagedMarker, false)

	expectFetch(mPrim, nil, []slack.Channel{slackChan("G0HIDDEN1", "split", "U0PRIMARY", ManagedMarker, true)})
	mPrim.EXPECT().
		CreateConversationContext(gomock.Any(), slack.CreateConversationParams{ChannelName: "split"}).
		Return(&created, nil)
	mPrim.EXPECT().
		SetPurposeOfConversationContext(gomock.Any(), "C0SPLIT01", ManagedMarker).
		Return(&stamped, nil)
	expectFetch(mPrim, nil, []slack.Channel{stamped})

	res, err := p.EnsureManagedChannel(t.Context(), ClassPrimary, "split", false, "")
	require.NoError(t, err)
	assert.True(t, res.IsNew)
	assert.Equal(t, "C0SPLIT01", res.Channel.ID)
}

func TestEnsureManagedChannel_badName(t *testing.T) {
	p, _, _ := newTestProvider(t)
	seedDirectory(p, testUsers, testChannels)

	for _, name := range []string{"", "Has Spaces", "UPPER", "way@off", strings.Repeat("x", 81)} {
		_, err := p.EnsureManagedChannel(t.Context(), ClassPrimary, name, false, "")
		var ne *NameError
		require.ErrorAs(t, err, &ne, name)
		assert.Equal(t, name, ne.Name)
	}
}
