package handlers

import (
	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
)

// Prefix commands need message content, playback needs voice state tracking
const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent |
	discordgo.IntentsGuildVoiceStates

// HandlerConfig sets the gateway intents and adds the session level handlers
func HandlerConfig(s *discordgo.Session) {
	s.Identify.Intents = intents
	s.AddHandler(readyHandler)
	s.AddHandler(MessageHandler)
}

func readyHandler(s *discordgo.Session, r *discordgo.Ready) {
	log.WithFields(log.Fields{
		"user":   r.User.Username,
		"guilds": len(r.Guilds),
	}).Info("Bot is ready")
}
