package voice

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"steward/models"
	"steward/store"
)

type mockChannelAPI struct {
	mock.Mock
}

func (m *mockChannelAPI) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	args := m.Called(guildID, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discordgo.Channel), args.Error(1)
}

func (m *mockChannelAPI) ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	args := m.Called(channelID)
	return &discordgo.Channel{ID: channelID}, args.Error(1)
}

func (m *mockChannelAPI) ChannelEditComplex(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	args := m.Called(channelID, data)
	return &discordgo.Channel{ID: channelID}, args.Error(1)
}

func (m *mockChannelAPI) ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error {
	args := m.Called(channelID, targetID, targetType, allow, deny)
	return args.Error(0)
}

func (m *mockChannelAPI) GuildMemberMove(guildID, userID string, channelID *string, options ...discordgo.RequestOption) error {
	args := m.Called(guildID, userID, channelID)
	return args.Error(0)
}

func (m *mockChannelAPI) GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	args := m.Called(guildID, userID, roleID)
	return args.Error(0)
}

func (m *mockChannelAPI) GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	args := m.Called(guildID, userID, roleID)
	return args.Error(0)
}

func newTestArbiter(t *testing.T) (*Arbiter, *mockChannelAPI) {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	api := new(mockChannelAPI)
	return NewArbiter(st, api), api
}

func setupGuild(t *testing.T, a *Arbiter) {
	t.Helper()
	require.NoError(t, a.Setup("guild1", &models.VoiceConfig{
		CreateChannelID: "hub",
		CategoryID:      "cat1",
	}))
}

func spawnChannel(t *testing.T, a *Arbiter, api *mockChannelAPI) {
	t.Helper()
	api.On("GuildChannelCreateComplex", "guild1", mock.MatchedBy(func(d discordgo.GuildChannelCreateData) bool {
		return d.Name == "Alice's Channel" && d.Type == discordgo.ChannelTypeGuildVoice && d.ParentID == "cat1"
	})).Return(&discordgo.Channel{ID: "temp1"}, nil).Once()
	api.On("ChannelPermissionSet", "temp1", "owner1", discordgo.PermissionOverwriteTypeMember,
		ownerPerms, int64(0)).Return(nil).Once()
	api.On("GuildMemberMove", "guild1", "owner1", mock.Anything).Return(nil).Once()
	require.NoError(t, a.HandleVoiceState("guild1", "owner1", "Alice", nil, "hub", "", false))
}

func asOwner(id string) Actor { return Actor{ID: id} }

func asManager(id string) Actor { return Actor{ID: id, Manager: true} }

func TestArbiter_JoinHubSpawnsOwnedChannel(t *testing.T) {
	a, api := newTestArbiter(t)
	setupGuild(t, a)
	spawnChannel(t, a, api)

	sess, err := a.Session("temp1")
	require.NoError(t, err)
	assert.Equal(t, "owner1", sess.OwnerID)
	assert.Equal(t, "guild1", sess.GuildID)
	// The owner overwrite went out before the member was moved in.
	api.AssertExpectations(t)
}

func TestArbiter_UnconfiguredGuildIgnoresJoins(t *testing.T) {
	a, _ := newTestArbiter(t)
	assert.NoError(t, a.HandleVoiceState("guild1", "user1", "Alice", nil, "hub", "", false))
}

func TestArbiter_EmptyTempChannelIsReaped(t *testing.T) {
	a, api := newTestArbiter(t)
	setupGuild(t, a)
	spawnChannel(t, a, api)

	api.On("ChannelDelete", "temp1").Return(nil, nil).Once()
	require.NoError(t, a.HandleVoiceState("guild1", "owner1", "Alice", nil, "", "temp1", true))

	_, err := a.Session("temp1")
	assert.ErrorIs(t, err, ErrNotTempChannel)
	api.AssertExpectations(t)
}

func TestArbiter_OccupiedTempChannelSurvivesLeave(t *testing.T) {
	a, api := newTestArbiter(t)
	setupGuild(t, a)
	spawnChannel(t, a, api)

	require.NoError(t, a.HandleVoiceState("guild1", "visitor", "Bob", nil, "", "temp1", false))
	_, err := a.Session("temp1")
	assert.NoError(t, err)
	api.AssertNotCalled(t, "ChannelDelete", "temp1")
}

func TestArbiter_LockedChannelDisconnectsBarredJoiner(t *testing.T) {
	a, api := newTestArbiter(t)
	setupGuild(t, a)
	spawnChannel(t, a, api)

	api.On("ChannelPermissionSet", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, a.Lock("temp1", asOwner("owner1")))
	require.NoError(t, a.Permit("temp1", asOwner("owner1"), "friend", false))

	// A stranger joining a locked channel is moved back out.
	api.On("GuildMemberMove", "guild1", "stranger", (*string)(nil)).Return(nil).Once()
	require.NoError(t, a.HandleVoiceState("guild1", "stranger", "Eve", nil, "temp1", "", false))
	api.AssertExpectations(t)

	// A permitted member stays.
	require.NoError(t, a.HandleVoiceState("guild1", "friend", "Carol", nil, "temp1", "", false))
	api.AssertNotCalled(t, "GuildMemberMove", "guild1", "friend", (*string)(nil))
}

func TestArbiter_DefaultRoleFollowsTempMembership(t *testing.T) {
	a, api := newTestArbiter(t)
	require.NoError(t, a.Setup("guild1", &models.VoiceConfig{
		CreateChannelID: "hub",
		CategoryID:      "cat1",
		DefaultRoleID:   "vip",
	}))
	spawnChannel(t, a, api)

	api.On("GuildMemberRoleAdd", "guild1", "visitor", "vip").Return(nil).Once()
	require.NoError(t, a.HandleVoiceState("guild1", "visitor", "Bob", nil, "temp1", "", false))

	api.On("GuildMemberRoleRemove", "guild1", "visitor", "vip").Return(nil).Once()
	require.NoError(t, a.HandleVoiceState("guild1", "visitor", "Bob", nil, "", "temp1", false))
	api.AssertExpectations(t)
}

func TestArbiter_LockRequiresOwner(t *testing.T) {
	a, api := newTestArbiter(t)
	setupGuild(t, a)
	spawnChannel(t, a, api)

	assert.ErrorIs(t, a.Lock("temp1", asOwner("intruder")), ErrNotOwner)
	assert.ErrorIs(t, a.Lock("nope", asOwner("owner1")), ErrNotTempChannel)

	api.On("ChannelPermissionSet", "temp1", "guild1", discordgo.PermissionOverwriteTypeRole,
		int64(0), int64(discordgo.PermissionVoiceConnect)).Return(nil).Once()
	require.NoError(t, a.Lock("temp1", asOwner("owner1")))

	sess, err := a.Session("temp1")
	require.NoError(t, err)
	assert.True(t, sess.Locked)
}

func TestArbiter_ManagerBypassesOwnerGate(t *testing.T) {
	a, api := newTestArbiter(t)
	setupGuild(t, a)
	spawnChannel(t, a, api)

	api.On("ChannelEditComplex", "temp1", mock.Anything).Return(nil, nil).Once()
	require.NoError(t, a.Rename("temp1", asManager("staff"), "quiet room"))

	sess, err := a.Session("temp1")
	require.NoError(t, err)
	assert.Equal(t, "owner1", sess.OwnerID)
}

func TestArbiter_PermitOverridesLock(t *testing.T) {
	a, api := newTestArbiter(t)
	setupGuild(t, a)
	spawnChannel(t, a, api)

	api.On("ChannelPermissionSet", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, a.Lock("temp1", asOwner("owner1")))
	require.NoError(t, a.Permit("temp1", asOwner("owner1"), "friend", false))

	sess, err := a.Session("temp1")
	require.NoError(t, err)
	assert.True(t, sess.MayConnect("friend", nil))
	assert.False(t, sess.MayConnect("stranger", nil))
}

func TestArbiter_RejectDisconnectsConnectedUser(t *testing.T) {
	a, api := newTestArbiter(t)
	setupGuild(t, a)
	spawnChannel(t, a, api)

	api.On("ChannelPermissionSet", "temp1", "pest", discordgo.PermissionOverwriteTypeMember,
		int64(0), int64(discordgo.PermissionVoiceConnect)).Return(nil).Once()
	api.On("GuildMemberMove", "guild1", "pest", (*string)(nil)).Return(nil).Once()

	require.NoError(t, a.Reject("temp1", asOwner("owner1"), "pest", false, true))

	sess, err := a.Session("temp1")
	require.NoError(t, err)
	assert.False(t, sess.MayConnect("pest", nil))
	api.AssertExpectations(t)
}

func TestArbiter_RejectedRoleBlocksUnlessPermittedUser(t *testing.T) {
	a, api := newTestArbiter(t)
	setupGuild(t, a)
	spawnChannel(t, a, api)

	api.On("ChannelPermissionSet", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, a.Reject("temp1", asOwner("owner1"), "badrole", true, false))
	require.NoError(t, a.Permit("temp1", asOwner("owner1"), "friend", false))

	sess, err := a.Session("temp1")
	require.NoError(t, err)
	assert.False(t, sess.MayConnect("someone", []string{"badrole"}))
	assert.True(t, sess.MayConnect("friend", []string{"badrole"}))
}

func TestArbiter_TransferSwapsOwnerOverwrite(t *testing.T) {
	a, api := newTestArbiter(t)
	setupGuild(t, a)
	spawnChannel(t, a, api)

	api.On("ChannelPermissionSet", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, a.Transfer("temp1", asOwner("owner1"), "owner2"))

	sess, err := a.Session("temp1")
	require.NoError(t, err)
	assert.Equal(t, "owner2", sess.OwnerID)
	api.AssertCalled(t, "ChannelPermissionSet", "temp1", "owner1",
		discordgo.PermissionOverwriteTypeMember, int64(0), int64(0))
	api.AssertCalled(t, "ChannelPermissionSet", "temp1", "owner2",
		discordgo.PermissionOverwriteTypeMember, ownerPerms, int64(0))

	// Old owner is a regular member now.
	assert.ErrorIs(t, a.Rename("temp1", asOwner("owner1"), "x"), ErrNotOwner)
}

func TestArbiter_ClaimSwapsOwnerOverwrite(t *testing.T) {
	a, api := newTestArbiter(t)
	setupGuild(t, a)
	spawnChannel(t, a, api)

	assert.ErrorIs(t, a.Claim("temp1", "claimer", true), ErrOwnerPresent)

	api.On("ChannelPermissionSet", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, a.Claim("temp1", "claimer", false))

	sess, err := a.Session("temp1")
	require.NoError(t, err)
	assert.Equal(t, "claimer", sess.OwnerID)
	api.AssertCalled(t, "ChannelPermissionSet", "temp1", "owner1",
		discordgo.PermissionOverwriteTypeMember, int64(0), int64(0))
	api.AssertCalled(t, "ChannelPermissionSet", "temp1", "claimer",
		discordgo.PermissionOverwriteTypeMember, ownerPerms, int64(0))
}

func TestArbiter_BitrateClamps(t *testing.T) {
	a, api := newTestArbiter(t)
	setupGuild(t, a)
	spawnChannel(t, a, api)

	api.On("ChannelEditComplex", "temp1", mock.Anything).Return(nil, nil)

	applied, err := a.Bitrate("temp1", asOwner("owner1"), 1000, discordgo.PremiumTierNone)
	require.NoError(t, err)
	assert.Equal(t, MinBitrate, applied)

	applied, err = a.Bitrate("temp1", asOwner("owner1"), 500000, discordgo.PremiumTierNone)
	require.NoError(t, err)
	assert.Equal(t, 96000, applied)

	applied, err = a.Bitrate("temp1", asOwner("owner1"), 500000, discordgo.PremiumTier3)
	require.NoError(t, err)
	assert.Equal(t, 384000, applied)

	applied, err = a.Bitrate("temp1", asOwner("owner1"), 64000, discordgo.PremiumTierNone)
	require.NoError(t, err)
	assert.Equal(t, 64000, applied)
}

func TestArbiter_ReconcileDropsStaleSessions(t *testing.T) {
	a, api := newTestArbiter(t)
	setupGuild(t, a)
	spawnChannel(t, a, api)

	// temp1 exists but emptied while the process was down.
	api.On("ChannelDelete", "temp1").Return(nil, nil).Once()
	require.NoError(t, a.Reconcile(map[string]bool{"hub": false, "temp1": false}))

	_, err := a.Session("temp1")
	assert.ErrorIs(t, err, ErrNotTempChannel)
	api.AssertExpectations(t)
}

func TestArbiter_ReconcileKeepsOccupied(t *testing.T) {
	a, api := newTestArbiter(t)
	setupGuild(t, a)
	spawnChannel(t, a, api)

	require.NoError(t, a.Reconcile(map[string]bool{"hub": false, "temp1": true}))
	_, err := a.Session("temp1")
	assert.NoError(t, err)
	api.AssertNotCalled(t, "ChannelDelete", "temp1")
}

func TestArbiter_ReconcileDropsConfigWithMissingHub(t *testing.T) {
	a, _ := newTestArbiter(t)
	setupGuild(t, a)

	// The create channel was deleted while the process was down.
	require.NoError(t, a.Reconcile(map[string]bool{"other": true}))

	_, err := a.Config("guild1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
