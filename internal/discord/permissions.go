package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/keshon/botcore/internal/command"
)

// PermissionNames maps permission bits to the names commands use for their
// capabilities, e.g. command.Capability{Name: "Embed Links"}.
var PermissionNames = map[int64]string{
	discordgo.PermissionCreateInstantInvite:   "Create Instant Invite",
	discordgo.PermissionKickMembers:           "Kick Members",
	discordgo.PermissionBanMembers:            "Ban Members",
	discordgo.PermissionAdministrator:         "Administrator",
	discordgo.PermissionManageChannels:        "Manage Channels",
	discordgo.PermissionManageGuild:           "Manage Server",
	discordgo.PermissionAddReactions:          "Add Reactions",
	discordgo.PermissionViewAuditLogs:         "View Audit Logs",
	discordgo.PermissionViewChannel:           "View Channel",
	discordgo.PermissionSendMessages:          "Send Messages",
	discordgo.PermissionManageMessages:        "Manage Messages",
	discordgo.PermissionEmbedLinks:            "Embed Links",
	discordgo.PermissionAttachFiles:           "Attach Files",
	discordgo.PermissionReadMessageHistory:    "Read Message History",
	discordgo.PermissionMentionEveryone:       "Mention Everyone",
	discordgo.PermissionUseExternalEmojis:     "Use External Emojis",
	discordgo.PermissionManageThreads:         "Manage Threads",
	discordgo.PermissionSendMessagesInThreads: "Send Messages in Threads",
	discordgo.PermissionVoicePrioritySpeaker:  "Priority Speaker",
	discordgo.PermissionVoiceStreamVideo:      "Stream Video",
	discordgo.PermissionVoiceConnect:          "Connect",
	discordgo.PermissionVoiceSpeak:            "Speak",
	discordgo.PermissionVoiceMuteMembers:      "Mute Members",
	discordgo.PermissionVoiceDeafenMembers:    "Deafen Members",
	discordgo.PermissionVoiceMoveMembers:      "Move Members",
	discordgo.PermissionVoiceUseVAD:           "Use Voice Activity",
	discordgo.PermissionChangeNickname:        "Change Nickname",
	discordgo.PermissionManageNicknames:       "Manage Nicknames",
	discordgo.PermissionManageRoles:           "Manage Roles",
	discordgo.PermissionManageWebhooks:        "Manage Webhooks",
	discordgo.PermissionModerateMembers:       "Moderate Members",
}

var permissionBits = func() map[string]int64 {
	m := make(map[string]int64, len(PermissionNames))
	for bit, name := range PermissionNames {
		m[strings.ToLower(name)] = bit
	}
	return m
}()

// PermissionBit returns the bit of a capability name, ignoring case.
func PermissionBit(name string) (int64, bool) {
	bit, ok := permissionBits[strings.ToLower(name)]
	return bit, ok
}

// moderatorPermissions grant the Moderator level.
const moderatorPermissions = discordgo.PermissionManageMessages |
	discordgo.PermissionKickMembers |
	discordgo.PermissionBanMembers |
	discordgo.PermissionModerateMembers

// LevelFor computes a member's level from their permissions in a channel.
func LevelFor(perms int64, owner bool) command.Level {
	switch {
	case owner:
		return command.ServerOwner
	case perms&discordgo.PermissionAdministrator != 0:
		return command.Administrator
	case perms&moderatorPermissions != 0:
		return command.Moderator
	default:
		return command.Standard
	}
}

// actor resolves who sent a message. State lookups that fail leave the
// actor at the Standard level.
func (b *Bot) actor(s *discordgo.Session, m *discordgo.MessageCreate) command.Actor {
	a := command.Actor{
		ID:       m.Author.ID,
		Level:    command.Standard,
		Operator: b.cfg.IsOperator(m.Author.ID),
	}
	if m.GuildID == "" {
		return a
	}

	owner := false
	if g, err := s.State.Guild(m.GuildID); err == nil && g != nil {
		owner = g.OwnerID == m.Author.ID
	}
	perms, err := s.State.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		b.logger.Debug("No permissions in state",
			zap.String("user", m.Author.ID),
			zap.String("channel", m.ChannelID),
			zap.Error(err),
		)
	}
	a.Level = LevelFor(perms, owner)
	return a
}

// capabilities answers capability checks from the session state for the
// bot user.
type capabilities struct {
	state  *discordgo.State
	selfID string
}

func (c capabilities) BotHas(want command.Capability, channelID string) bool {
	bit, ok := PermissionBit(want.Name)
	if !ok {
		return false
	}
	perms, err := c.state.UserChannelPermissions(c.selfID, channelID)
	if err != nil {
		return false
	}
	return perms&discordgo.PermissionAdministrator != 0 || perms&bit == bit
}
