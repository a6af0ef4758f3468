package discord

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/keshon/botcore/internal/command"
	"github.com/keshon/botcore/internal/config"
	"github.com/keshon/botcore/pkg/retrylimit"
)

func TestStripPrefix(t *testing.T) {
	tests := []struct {
		content string
		want    string
		ok      bool
	}{
		{"!ping", "ping", true},
		{"!  tag create a b", "tag create a b", true},
		{"<@42> ping", "ping", true},
		{"<@!42>ping", "ping", true},
		{"<@43> ping", "", false},
		{"!", "", false},
		{"<@42>", "", false},
		{"hello !ping", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			got, ok := StripPrefix(tt.content, "!", "42")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := StripPrefix("<@> ping", "!", "")
	assert.False(t, ok, "mentions need a known bot id")
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, command.ServerOwner, LevelFor(0, true))
	assert.Equal(t, command.Administrator, LevelFor(discordgo.PermissionAdministrator, false))
	assert.Equal(t, command.Moderator, LevelFor(discordgo.PermissionKickMembers|discordgo.PermissionSendMessages, false))
	assert.Equal(t, command.Standard, LevelFor(discordgo.PermissionSendMessages, false))
}

func TestPermissionBit(t *testing.T) {
	bit, ok := PermissionBit("manage messages")
	require.True(t, ok)
	assert.Equal(t, int64(discordgo.PermissionManageMessages), bit)

	bit, ok = PermissionBit("Connect")
	require.True(t, ok)
	assert.Equal(t, int64(discordgo.PermissionVoiceConnect), bit)

	_, ok = PermissionBit("Fly")
	assert.False(t, ok)
}

func TestRESTErrorsAreClassified(t *testing.T) {
	restErr := func(code int) error {
		return &discordgo.RESTError{Response: &http.Response{StatusCode: code, Status: http.StatusText(code)}}
	}

	assert.Equal(t, retrylimit.Throttle, retrylimit.HTTPClassifier(wrapREST(restErr(http.StatusTooManyRequests))))
	assert.Equal(t, retrylimit.Retry, retrylimit.HTTPClassifier(wrapREST(restErr(http.StatusBadGateway))))
	assert.Equal(t, retrylimit.Fatal, retrylimit.HTTPClassifier(wrapREST(restErr(http.StatusForbidden))))

	wrapped := wrapREST(fmt.Errorf("send: %w", restErr(http.StatusNotFound)))
	var re *discordgo.RESTError
	assert.True(t, errors.As(wrapped, &re))

	plain := errors.New("connection reset")
	assert.Equal(t, plain, wrapREST(plain))
}

func TestCallCache(t *testing.T) {
	c := newCallCache()
	c.link("m1", "r1")
	c.link("m1", "r2")
	c.link("m2", "r3")
	c.link("", "r4")

	assert.Equal(t, []string{"r1", "r2"}, c.take("m1"))
	assert.Nil(t, c.take("m1"))
	assert.Equal(t, []string{"r3"}, c.take("m2"))

	for i := 0; i <= callCacheSize; i++ {
		c.link(fmt.Sprintf("m%d", i), "r")
	}
	assert.Nil(t, c.take("m0"), "oldest call is evicted")
	assert.Equal(t, []string{"r"}, c.take(fmt.Sprintf("m%d", callCacheSize)))
	assert.Len(t, c.replies, callCacheSize-1)
}

func testState(t *testing.T) *discordgo.State {
	t.Helper()
	s := discordgo.NewState()
	require.NoError(t, s.GuildAdd(&discordgo.Guild{
		ID:      "g1",
		OwnerID: "owner",
		Roles: []*discordgo.Role{
			{ID: "g1", Permissions: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages},
			{ID: "mods", Permissions: discordgo.PermissionManageMessages},
			{ID: "admins", Permissions: discordgo.PermissionAdministrator},
			{ID: "voice", Permissions: discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak},
		},
		Channels: []*discordgo.Channel{
			{ID: "text", GuildID: "g1", Type: discordgo.ChannelTypeGuildText},
			{ID: "vc", GuildID: "g1", Type: discordgo.ChannelTypeGuildVoice},
		},
		Members: []*discordgo.Member{
			{GuildID: "g1", User: &discordgo.User{ID: "owner"}},
			{GuildID: "g1", User: &discordgo.User{ID: "member"}},
			{GuildID: "g1", User: &discordgo.User{ID: "mod"}, Roles: []string{"mods"}},
			{GuildID: "g1", User: &discordgo.User{ID: "admin"}, Roles: []string{"admins"}},
			{GuildID: "g1", User: &discordgo.User{ID: "bot"}, Roles: []string{"voice"}},
		},
		VoiceStates: []*discordgo.VoiceState{
			{GuildID: "g1", UserID: "member", ChannelID: "vc"},
		},
	}))
	return s
}

func TestActor(t *testing.T) {
	b := &Bot{cfg: &config.Config{OperatorIDs: []string{"admin"}}, logger: zap.NewNop()}
	s := &discordgo.Session{State: testState(t)}

	actor := func(userID, guildID string) command.Actor {
		return b.actor(s, &discordgo.MessageCreate{Message: &discordgo.Message{
			Author:    &discordgo.User{ID: userID},
			ChannelID: "text",
			GuildID:   guildID,
		}})
	}

	assert.Equal(t, command.Actor{ID: "owner", Level: command.ServerOwner}, actor("owner", "g1"))
	assert.Equal(t, command.Actor{ID: "member", Level: command.Standard}, actor("member", "g1"))
	assert.Equal(t, command.Actor{ID: "mod", Level: command.Moderator}, actor("mod", "g1"))
	assert.Equal(t, command.Actor{ID: "admin", Level: command.Administrator, Operator: true}, actor("admin", "g1"))
	assert.Equal(t, command.Actor{ID: "stranger", Level: command.Standard}, actor("stranger", "g1"))
	assert.Equal(t, command.Actor{ID: "owner", Level: command.Standard}, actor("owner", ""), "no levels in DMs")
}

func TestCapabilities(t *testing.T) {
	c := capabilities{state: testState(t), selfID: "bot"}

	assert.True(t, c.BotHas(command.Capability{Name: "Send Messages"}, "text"))
	assert.False(t, c.BotHas(command.Capability{Name: "Manage Messages"}, "text"))
	assert.True(t, c.BotHas(command.Capability{Name: "Speak", Voice: true}, "vc"))
	assert.False(t, c.BotHas(command.Capability{Name: "Teleport"}, "text"))
	assert.False(t, c.BotHas(command.Capability{Name: "Send Messages"}, "unknown"))

	admin := capabilities{state: c.state, selfID: "admin"}
	assert.True(t, admin.BotHas(command.Capability{Name: "Ban Members"}, "text"))
}

func TestVoiceChannel(t *testing.T) {
	s := testState(t)
	assert.Equal(t, "vc", voiceChannel(s, "g1", "member"))
	assert.Equal(t, "", voiceChannel(s, "g1", "mod"))
	assert.Equal(t, "", voiceChannel(s, "", "member"))
	assert.Equal(t, "", voiceChannel(s, "g2", "member"))
}
