package dispatch

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGuild() *discordgo.Guild {
	return &discordgo.Guild{
		ID:      "900",
		OwnerID: "1",
		Members: []*discordgo.Member{
			{User: &discordgo.User{ID: "100", Username: "alice"}, Nick: "Ally"},
			{User: &discordgo.User{ID: "200", Username: "bob"}},
		},
		Roles: []*discordgo.Role{
			{ID: "900", Name: "@everyone"},
			{ID: "300", Name: "Moderator"},
		},
		Channels: []*discordgo.Channel{
			{ID: "400", Name: "general", Type: discordgo.ChannelTypeGuildText},
			{ID: "401", Name: "vc", Type: discordgo.ChannelTypeGuildVoice},
		},
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"10m", 10 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1d", 24 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"1d2h30m", 26*time.Hour + 30*time.Minute},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseDuration_Rejects(t *testing.T) {
	for _, in := range []string{"", "10", "m", "10x", "ten-minutes", "1h30"} {
		_, err := ParseDuration(in)
		assert.Error(t, err, in)
	}
}

func TestConvertMember(t *testing.T) {
	g := testGuild()

	for _, tok := range []string{"<@100>", "<@!100>", "100", "alice", "ALLY"} {
		v, err := convertMember(g, tok)
		require.NoError(t, err, tok)
		assert.Equal(t, "100", v.(*discordgo.Member).User.ID, tok)
	}

	_, err := convertMember(g, "charlie")
	assert.Error(t, err)
	_, err = convertMember(nil, "alice")
	assert.Error(t, err)
}

func TestConvertRole(t *testing.T) {
	g := testGuild()

	for _, tok := range []string{"<@&300>", "300", "moderator"} {
		v, err := convertRole(g, tok)
		require.NoError(t, err, tok)
		assert.Equal(t, "300", v.(*discordgo.Role).ID, tok)
	}

	_, err := convertRole(g, "nonexistent")
	assert.Error(t, err)
}

func TestConvertChannel_TextOnly(t *testing.T) {
	g := testGuild()

	v, err := convertChannel(g, "general")
	require.NoError(t, err)
	assert.Equal(t, "400", v.(*discordgo.Channel).ID)

	// Voice channels never match the text-channel converter.
	_, err = convertChannel(g, "vc")
	assert.Error(t, err)
}

func TestBindArgs_Remainder(t *testing.T) {
	params := []Param{
		{Name: "member", Kind: KindMember},
		{Name: "reason", Kind: KindRemainder},
	}
	args, err := bindArgs(testGuild(), params, "alice spamming  in   general")
	require.NoError(t, err)

	assert.Equal(t, "100", args[0].(*discordgo.Member).User.ID)
	assert.Equal(t, "spamming  in   general", args[1].(string))
}

func TestBindArgs_GreedyMembersStopsOnFirstFailure(t *testing.T) {
	params := []Param{
		{Name: "targets", Kind: KindMember, Greedy: true},
		{Name: "reason", Kind: KindRemainder, Optional: true},
	}
	args, err := bindArgs(testGuild(), params, "alice bob raid cleanup")
	require.NoError(t, err)

	members := args[0].([]*discordgo.Member)
	require.Len(t, members, 2)
	assert.Equal(t, "100", members[0].User.ID)
	assert.Equal(t, "200", members[1].User.ID)
	assert.Equal(t, "raid cleanup", args[1].(string))
}

func TestBindArgs_GreedyNeverFails(t *testing.T) {
	params := []Param{{Name: "targets", Kind: KindMember, Greedy: true}}
	args, err := bindArgs(testGuild(), params, "")
	require.NoError(t, err)
	assert.Empty(t, args[0].([]*discordgo.Member))
}

func TestBindArgs_MissingRequired(t *testing.T) {
	params := []Param{{Name: "amount", Kind: KindInt}}
	_, err := bindArgs(testGuild(), params, "")

	var badArg *BadArgument
	require.ErrorAs(t, err, &badArg)
	assert.Equal(t, "amount", badArg.Param)
}

func TestBindArgs_OptionalAbsent(t *testing.T) {
	params := []Param{
		{Name: "amount", Kind: KindInt},
		{Name: "reason", Kind: KindRemainder, Optional: true},
	}
	args, err := bindArgs(testGuild(), params, "50")
	require.NoError(t, err)

	assert.Equal(t, int64(50), args[0].(int64))
	assert.Nil(t, args[1])
}

func TestConvertAmount(t *testing.T) {
	v, err := convertOne(nil, KindAmount, "all")
	require.NoError(t, err)
	assert.True(t, v.(Amount).All)

	v, err = convertOne(nil, KindAmount, "HALF")
	require.NoError(t, err)
	assert.True(t, v.(Amount).Half)

	v, err = convertOne(nil, KindAmount, "250")
	require.NoError(t, err)
	assert.Equal(t, int64(250), v.(Amount).Value)

	_, err = convertOne(nil, KindAmount, "lots")
	assert.Error(t, err)
}

func TestAmountResolve(t *testing.T) {
	assert.Equal(t, int64(900), Amount{All: true}.Resolve(900))
	assert.Equal(t, int64(450), Amount{Half: true}.Resolve(900))
	assert.Equal(t, int64(42), Amount{Value: 42}.Resolve(900))
}

func TestConvertInt_RejectsNonDecimal(t *testing.T) {
	for _, tok := range []string{"0x10", "3.5", "ten"} {
		_, err := convertOne(nil, KindInt, tok)
		assert.Error(t, err, tok)
	}
}
