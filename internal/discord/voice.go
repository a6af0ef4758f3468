package discord

import "github.com/bwmarrin/discordgo"

// voiceChannel returns the voice channel a user is connected to in a guild,
// or "" if they are not in one.
func voiceChannel(state *discordgo.State, guildID, userID string) string {
	if guildID == "" {
		return ""
	}
	vs, err := state.VoiceState(guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}
