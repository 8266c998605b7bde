package commands

import (
	"errors"

	"Nocturne/searchy"
	"Nocturne/validation"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
)

type interactionError struct {
	err     error
	message string
}

// Handle handles responding to error messages within Discord
func (e *interactionError) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	log.WithError(e.err).Error(e.message)
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:   discordgo.MessageFlagsEphemeral,
			Content: e.message,
		},
	})
	// Deferred interactions can only be followed up
	if err != nil {
		s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Flags:   discordgo.MessageFlagsEphemeral,
			Content: e.message,
		})
	}
}

// userError wraps err with the message a user should see for it
func userError(err error, fallback string) *interactionError {
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		return &interactionError{err, verr.Message}
	}
	return &interactionError{err, userMessage(err, fallback)}
}

func userMessage(err error, fallback string) string {
	var serr *searchy.ServiceError
	if errors.As(err, &serr) {
		return "❌ The " + searchy.ServiceName + " service is unavailable. " + serr.Error()
	}
	if msg, ok := searchy.UserMessage(err); ok {
		return "❌ " + msg
	}
	return fallback
}
