package commands

import (
	"errors"
	"sync"

	"Nocturne/player"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
)

var errOtherChannel = errors.New("bot is connected to a different voice channel")

// voiceRegistry tracks the voice connection the bot holds in each guild
type voiceRegistry struct {
	mu    sync.Mutex
	conns map[string]*player.DiscordConnection
}

func newVoiceRegistry() *voiceRegistry {
	return &voiceRegistry{conns: map[string]*player.DiscordConnection{}}
}

// get returns the guild's live connection
func (r *voiceRegistry) get(guildID string) (*player.DiscordConnection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[guildID]
	if !ok || conn.Destroyed() {
		return nil, false
	}
	return conn, true
}

// connect joins channelID, reusing the guild's connection if it is already there.
func (r *voiceRegistry) connect(s *discordgo.Session, guildID, channelID string) (*player.DiscordConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[guildID]; ok && !conn.Destroyed() {
		if conn.ChannelID() == channelID {
			return conn, nil
		}
		return nil, errOtherChannel
	}

	vc, err := s.ChannelVoiceJoin(guildID, channelID, false, false)
	if err != nil {
		return nil, err
	}
	conn := player.NewDiscordConnection(vc, func() (*player.DiscordConnection, error) {
		return r.connect(s, guildID, channelID)
	})
	r.conns[guildID] = conn
	return conn, nil
}

func (r *voiceRegistry) destroyAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = map[string]*player.DiscordConnection{}
	r.mu.Unlock()

	for guildID, conn := range conns {
		if err := conn.Destroy(); err != nil {
			log.WithError(err).WithFields(log.Fields{"guild_id": guildID}).Warn("Error while disconnecting from voice")
		}
	}
}

// interactionNotifier posts follow ups to the interaction that started playback
type interactionNotifier struct {
	s *discordgo.Session
	i *discordgo.Interaction
}

func (n interactionNotifier) FollowUp(content string, ephemeral bool) error {
	params := &discordgo.WebhookParams{Content: content}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	_, err := n.s.FollowupMessageCreate(n.i, false, params)
	return err
}

// stringOption returns the named option, or nil if it was not sent
func stringOption(i *discordgo.InteractionCreate, name string) *string {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			value := opt.StringValue()
			return &value
		}
	}
	return nil
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to respond to interaction")
	}
}

func reply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	respond(s, i, &discordgo.InteractionResponseData{Content: content})
}

func whisper(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	respond(s, i, &discordgo.InteractionResponseData{Content: content, Flags: discordgo.MessageFlagsEphemeral})
}

func deferReply(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to defer interaction response")
	}
}

// editReply replaces the deferred or original response, dropping any buttons
func editReply(s *discordgo.Session, i *discordgo.Interaction, content string, embeds ...*discordgo.MessageEmbed) {
	components := []discordgo.MessageComponent{}
	edit := &discordgo.WebhookEdit{Content: &content, Components: &components}
	if embeds != nil {
		edit.Embeds = &embeds
	}
	if _, err := s.InteractionResponseEdit(i, edit); err != nil {
		log.WithError(err).Warn("Failed to edit interaction response")
	}
}
