package handlers

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

// MessageHandler handles message commands
func MessageHandler(s *discordgo.Session, m *discordgo.MessageCreate) {
	// If message is sent from the bot
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}

	switch prefixCommand(m.Content, viper.GetString("prefix")) {
	case "":
		s.ChannelMessageSend(m.ChannelID, "type `"+viper.GetString("prefix")+"help` to open help menu.") // invalid prefix command
	case "help":
		HelpEmbedding(s, m)
	}
}

// prefixCommand returns the word following prefix, or "-" if content is not a prefix command
func prefixCommand(content, prefix string) string {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "-"
	}
	firstWord, _, _ := strings.Cut(content, " ")
	return strings.TrimPrefix(firstWord, prefix)
}
