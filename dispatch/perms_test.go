package dispatch

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRestrictions struct {
	roles map[string][]string // command -> permitted role ids
}

func (s *stubRestrictions) PermittedRoles(guildID, command string) ([]string, bool) {
	r, ok := s.roles[command]
	return r, ok
}

func permGuild() *discordgo.Guild {
	return &discordgo.Guild{
		ID:      "900",
		OwnerID: "1",
		Roles: []*discordgo.Role{
			{ID: "900", Name: "@everyone", Permissions: discordgo.PermissionSendMessages},
			{ID: "modrole", Name: "Mods", Permissions: discordgo.PermissionBanMembers},
			{ID: "adminrole", Name: "Admins", Permissions: discordgo.PermissionAdministrator},
		},
	}
}

func gateCtx(g *discordgo.Guild, member *discordgo.Member) *Context {
	return &Context{
		Guild:   g,
		Message: &discordgo.Message{Author: member.User, Member: member},
	}
}

func TestMemberPermissions_RoleUnion(t *testing.T) {
	g := permGuild()
	member := &discordgo.Member{User: &discordgo.User{ID: "5"}, Roles: []string{"modrole"}}

	perms := memberPermissions(g, member)
	assert.NotZero(t, perms&discordgo.PermissionBanMembers)
	assert.NotZero(t, perms&discordgo.PermissionSendMessages)
	assert.Zero(t, perms&discordgo.PermissionManageServer)
}

func TestMemberPermissions_AdministratorGrantsAll(t *testing.T) {
	g := permGuild()
	member := &discordgo.Member{User: &discordgo.User{ID: "5"}, Roles: []string{"adminrole"}}
	assert.Equal(t, int64(discordgo.PermissionAll), memberPermissions(g, member))
}

func TestMemberPermissions_OwnerGrantsAll(t *testing.T) {
	g := permGuild()
	member := &discordgo.Member{User: &discordgo.User{ID: "1"}}
	assert.Equal(t, int64(discordgo.PermissionAll), memberPermissions(g, member))
}

func TestGate_CapabilityCheck(t *testing.T) {
	r := NewRegistry("!", nil)
	cmd := &Command{Name: "ban", Permissions: discordgo.PermissionBanMembers}
	g := permGuild()

	mod := &discordgo.Member{User: &discordgo.User{ID: "5"}, Roles: []string{"modrole"}}
	assert.NoError(t, r.gate(gateCtx(g, mod), cmd, "ban"))

	pleb := &discordgo.Member{User: &discordgo.User{ID: "6"}}
	err := r.gate(gateCtx(g, pleb), cmd, "ban")
	var missing *MissingPermission
	require.ErrorAs(t, err, &missing)
}

func TestGate_AnyOfPassesOnOneCheck(t *testing.T) {
	r := NewRegistry("!", nil)
	cmd := &Command{
		Name: "claim",
		AnyOf: []Check{
			func(ctx *Context) bool { return false },
			func(ctx *Context) bool { return true },
		},
	}
	member := &discordgo.Member{User: &discordgo.User{ID: "6"}}
	assert.NoError(t, r.gate(gateCtx(permGuild(), member), cmd, "claim"))
}

func TestGate_AnyOfFailsWhenAllFail(t *testing.T) {
	r := NewRegistry("!", nil)
	cmd := &Command{
		Name:  "claim",
		AnyOf: []Check{func(ctx *Context) bool { return false }},
	}
	member := &discordgo.Member{User: &discordgo.User{ID: "6"}}
	assert.Error(t, r.gate(gateCtx(permGuild(), member), cmd, "claim"))
}

func TestGate_RestrictionMap(t *testing.T) {
	restrictions := &stubRestrictions{roles: map[string][]string{
		"gamble": {"vip"},
	}}
	r := NewRegistry("!", restrictions)
	cmd := &Command{Name: "gamble"}
	g := permGuild()

	// Unrestricted command passes for anyone.
	member := &discordgo.Member{User: &discordgo.User{ID: "6"}}
	assert.NoError(t, r.gate(gateCtx(g, member), &Command{Name: "balance"}, "balance"))

	// Restricted command requires one of the permitted roles.
	assert.Equal(t, errRestricted, r.gate(gateCtx(g, member), cmd, "gamble"))

	vip := &discordgo.Member{User: &discordgo.User{ID: "7"}, Roles: []string{"vip"}}
	assert.NoError(t, r.gate(gateCtx(g, vip), cmd, "gamble"))

	// Guild owner bypasses restrictions.
	owner := &discordgo.Member{User: &discordgo.User{ID: "1"}}
	assert.NoError(t, r.gate(gateCtx(g, owner), cmd, "gamble"))

	// Administrators bypass restrictions.
	admin := &discordgo.Member{User: &discordgo.User{ID: "8"}, Roles: []string{"adminrole"}}
	assert.NoError(t, r.gate(gateCtx(g, admin), cmd, "gamble"))
}

func TestGate_OrderCapabilityBeforeRestriction(t *testing.T) {
	restrictions := &stubRestrictions{roles: map[string][]string{
		"purge": {"vip"},
	}}
	r := NewRegistry("!", restrictions)
	cmd := &Command{Name: "purge", Permissions: discordgo.PermissionManageMessages}

	// Invoker holds the restriction role but not the capability bit; the
	// capability check fires first.
	member := &discordgo.Member{User: &discordgo.User{ID: "6"}, Roles: []string{"vip"}}
	err := r.gate(gateCtx(permGuild(), member), cmd, "purge")
	var missing *MissingPermission
	require.ErrorAs(t, err, &missing)
	assert.NotEqual(t, errRestricted, err)
}

func TestTokenizeOffsets(t *testing.T) {
	toks := tokenize("ban  alice   being rude")
	require.Len(t, toks, 4)
	assert.Equal(t, "ban", toks[0].text)
	assert.Equal(t, "alice", toks[1].text)
	raw := "ban  alice   being rude"
	assert.Equal(t, "being rude", raw[toks[2].offset:])
}
