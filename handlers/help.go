package handlers

import (
	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

var helpFields = []*discordgo.MessageEmbedField{
	{Name: "🎵 Music", Value: "`/play` `/queue` `/next` `/skip` `/pause` `/resume` `/stop` `/history`"},
	{Name: "🎲 Fun", Value: "`/8ball` `/coinflip` `/peepee`"},
	{Name: "🔧 Utility", Value: "`/ping` `/server` `/user`"},
}

// HelpEmbedding creates the embedding for the help menu
func HelpEmbedding(s *discordgo.Session, m *discordgo.MessageCreate) {
	botAvatarURL := s.State.User.AvatarURL("64")
	helpEmbed := &discordgo.MessageEmbed{
		Title:       "Nocturne Help",
		Description: "Join a voice channel and use `/play` to search for a song.",
		Color:       viper.GetInt("theme"),
		Fields:      helpFields,
		Thumbnail: &discordgo.MessageEmbedThumbnail{
			URL: botAvatarURL,
		},
	}
	if _, err := s.ChannelMessageSendEmbed(m.ChannelID, helpEmbed); err != nil {
		log.WithError(err).WithFields(log.Fields{"channel_id": m.ChannelID}).Warn("Failed to send help menu")
	}
}
