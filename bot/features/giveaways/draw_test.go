package giveaways

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"steward/models"
	"steward/service"
)

type mockDrawAPI struct {
	mock.Mock
}

func (m *mockDrawAPI) ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	args := m.Called(channelID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discordgo.Message), args.Error(1)
}

func (m *mockDrawAPI) MessageReactions(channelID, messageID, emojiID string, limit int, beforeID, afterID string, options ...discordgo.RequestOption) ([]*discordgo.User, error) {
	args := m.Called(channelID, messageID, emojiID, limit, beforeID, afterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*discordgo.User), args.Error(1)
}

func (m *mockDrawAPI) ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	args := m.Called(channelID, messageID, embed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discordgo.Message), args.Error(1)
}

func (m *mockDrawAPI) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	args := m.Called(channelID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discordgo.Message), args.Error(1)
}

func (m *mockDrawAPI) GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	args := m.Called(guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discordgo.Member), args.Error(1)
}

func (m *mockDrawAPI) GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	args := m.Called(guildID, userID, roleID)
	return args.Error(0)
}

func activeGiveaway() *models.Giveaway {
	return &models.Giveaway{
		MessageID:    "msg1",
		ChannelID:    "chan1",
		GuildID:      "guild1",
		Prize:        "Nitro",
		WinnersCount: 1,
		HostIDs:      []string{"host1"},
		CreatedAt:    time.Now().Add(-time.Hour),
		EndTime:      time.Now().Add(-time.Minute),
	}
}

func TestDraw_PicksFromNonBotReactors(t *testing.T) {
	giveaways := new(service.MockGiveawayService)
	pokemon := new(service.MockPokemonService)
	api := new(mockDrawAPI)
	f := New(giveaways, pokemon)

	g := activeGiveaway()
	api.On("ChannelMessage", "chan1", "msg1").Return(&discordgo.Message{ID: "msg1"}, nil)
	api.On("MessageReactions", "chan1", "msg1", models.EntryEmoji, 100, "", "").
		Return([]*discordgo.User{
			{ID: "90000000000000001", Bot: true},
			{ID: "90000000000000002"},
		}, nil)
	api.On("GuildMember", "guild1", "90000000000000002").
		Return(&discordgo.Member{User: &discordgo.User{ID: "90000000000000002"}, JoinedAt: time.Now().Add(-48 * time.Hour)}, nil)
	pokemon.On("Trainer", mock.Anything, "90000000000000002").Return(nil, service.ErrNoTrainer)

	ended := activeGiveaway()
	now := time.Now()
	ended.EndedAt = &now
	ended.ValidEntries = []string{"90000000000000002"}
	ended.WinnerIDs = []string{"90000000000000002"}
	giveaways.On("Complete", mock.Anything, "guild1", "msg1", []string{"90000000000000002"}, mock.Anything).
		Return(ended, nil)

	api.On("ChannelMessageEditEmbed", "chan1", "msg1", mock.Anything).Return(&discordgo.Message{}, nil)
	api.On("ChannelMessageSend", "chan1", mock.MatchedBy(func(s string) bool {
		return len(s) > 0
	})).Return(&discordgo.Message{}, nil)

	err := f.draw(context.Background(), api, g)
	require.NoError(t, err)
	giveaways.AssertExpectations(t)
	api.AssertExpectations(t)
}

func TestDraw_NonMemberReactorIsFiltered(t *testing.T) {
	giveaways := new(service.MockGiveawayService)
	pokemon := new(service.MockPokemonService)
	api := new(mockDrawAPI)
	f := New(giveaways, pokemon)

	g := activeGiveaway()
	api.On("ChannelMessage", "chan1", "msg1").Return(&discordgo.Message{ID: "msg1"}, nil)
	api.On("MessageReactions", "chan1", "msg1", models.EntryEmoji, 100, "", "").
		Return([]*discordgo.User{{ID: "90000000000000003"}}, nil)
	api.On("GuildMember", "guild1", "90000000000000003").
		Return(nil, assert.AnError)

	ended := activeGiveaway()
	now := time.Now()
	ended.EndedAt = &now
	giveaways.On("Complete", mock.Anything, "guild1", "msg1", []string(nil), mock.Anything).
		Return(ended, nil)
	api.On("ChannelMessageEditEmbed", "chan1", "msg1", mock.Anything).Return(&discordgo.Message{}, nil)
	api.On("ChannelMessageSend", "chan1", mock.Anything).Return(&discordgo.Message{}, nil)

	err := f.draw(context.Background(), api, g)
	require.NoError(t, err)
	giveaways.AssertExpectations(t)
}

func TestDraw_DeletedAnnouncementDropsRecord(t *testing.T) {
	giveaways := new(service.MockGiveawayService)
	pokemon := new(service.MockPokemonService)
	api := new(mockDrawAPI)
	f := New(giveaways, pokemon)

	g := activeGiveaway()
	api.On("ChannelMessage", "chan1", "msg1").Return(nil, &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage},
	})
	giveaways.On("Drop", mock.Anything, "guild1", "msg1").Return(nil)

	err := f.draw(context.Background(), api, g)
	require.NoError(t, err)
	giveaways.AssertExpectations(t)
	api.AssertNotCalled(t, "MessageReactions", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDraw_RewardRolesGoToWinners(t *testing.T) {
	giveaways := new(service.MockGiveawayService)
	pokemon := new(service.MockPokemonService)
	api := new(mockDrawAPI)
	f := New(giveaways, pokemon)

	g := activeGiveaway()
	g.Filters.RewardRoleIDs = []string{"role1"}
	api.On("ChannelMessage", "chan1", "msg1").Return(&discordgo.Message{ID: "msg1"}, nil)
	api.On("MessageReactions", "chan1", "msg1", models.EntryEmoji, 100, "", "").
		Return([]*discordgo.User{{ID: "90000000000000004"}}, nil)
	api.On("GuildMember", "guild1", "90000000000000004").
		Return(&discordgo.Member{User: &discordgo.User{ID: "90000000000000004"}}, nil)
	pokemon.On("Trainer", mock.Anything, "90000000000000004").Return(nil, service.ErrNoTrainer)

	ended := activeGiveaway()
	ended.Filters.RewardRoleIDs = []string{"role1"}
	now := time.Now()
	ended.EndedAt = &now
	ended.ValidEntries = []string{"90000000000000004"}
	ended.WinnerIDs = []string{"90000000000000004"}
	giveaways.On("Complete", mock.Anything, "guild1", "msg1", mock.Anything, mock.Anything).
		Return(ended, nil)
	api.On("ChannelMessageEditEmbed", "chan1", "msg1", mock.Anything).Return(&discordgo.Message{}, nil)
	api.On("ChannelMessageSend", "chan1", mock.Anything).Return(&discordgo.Message{}, nil)
	api.On("GuildMemberRoleAdd", "guild1", "90000000000000004", "role1").Return(nil)

	err := f.draw(context.Background(), api, g)
	require.NoError(t, err)
	api.AssertCalled(t, "GuildMemberRoleAdd", "guild1", "90000000000000004", "role1")
}
