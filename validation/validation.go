package validation

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// ValidationError is a precondition failure whose message is shown to the user as is
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// VoiceStateLookup is satisfied by *discordgo.State
type VoiceStateLookup interface {
	VoiceState(guildID, userID string) (*discordgo.VoiceState, error)
}

// ValidateString returns value trimmed, failing if nothing is left
func ValidateString(value *string, fieldName string) (string, error) {
	if value == nil {
		return "", newError("%s is required and cannot be empty", fieldName)
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return "", newError("%s is required and cannot be empty", fieldName)
	}
	return trimmed, nil
}

// ValidateGuildID fails for interactions that did not come from a server
func ValidateGuildID(guildID string) (string, error) {
	if guildID == "" {
		return "", newError("This command can only be used in a server")
	}
	return guildID, nil
}

// ValidateVoiceChannel returns the id of the voice channel the member is connected to
func ValidateVoiceChannel(states VoiceStateLookup, guildID string, member *discordgo.Member) (string, error) {
	if member == nil || member.User == nil {
		return "", newError("Member information is not available")
	}
	vs, err := states.VoiceState(guildID, member.User.ID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return "", newError("You need to be in a voice channel to use this command")
	}
	return vs.ChannelID, nil
}
