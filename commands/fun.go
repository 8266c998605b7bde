package commands

import (
	"context"
	"fmt"
	"time"

	"Nocturne/utils"
	"Nocturne/validation"

	"github.com/bwmarrin/discordgo"
)

const (
	coinPrefix  = "c"
	coinTimeout = 15 * time.Second
)

var eightBallAnswers = []string{
	"Fo shizzle, it's a yes.",
	"Yaaas queen, affirmative.",
	"Yeet, it's happening.",
	"Certified fresh, no doubt.",
	"On fleek, defo yes.",
	"Such certainty, much wow.",
	"Yuppers, it's a go.",
	"Thumbs up emoji.",
	"Swiggity swooty, it's a yes.",
	"No cap, it's a yes.",
	"Error 404: Answer not found.",
	"¯\\_(ツ)_/¯ Ask later.",
	"Shh, it's a secret.",
	"Hazy AF, try again.",
	"Buffering... ask again later.",
	"Big oof, I wouldn't.",
	"Nope.exe.",
	"It's a no from me, dawg.",
	"That's gonna be a yikes from me.",
	"Not even in an alternate universe.",
}

var peepeeSizes = []string{
	"a diminutive demon",
	"an ultra-thicc",
	"a colossal chad",
	"a huge, like really big",
	"a teeny tiny, smol",
	"an absolute chonker",
	"a thicc, double C flex",
	"a smol bean",
	"a hella large",
	"a micro-vibes, can't even",
	"a ginormous, like whoa",
	"a pint-sized",
	"a pocket-sized",
	"a galactic proportions",
	"a minuscule, barely there",
	"a fun-sized, not a snack, a whole meal",
	"a nano-squad, tiny but mighty",
	"a mega, boss level flex",
	"a wee lil' thing, tiniest of smols",
	"a petite pixie",
	"a thick, super-voluptuous",
	"a monumental titan",
	"a giant, almost overwhelming",
	"a teeny-weeny, ultra-mini",
	"an oversized fluffy boi",
	"a robust, splendid heft",
	"a little nugget",
	"a mega-gargantuan",
	"a miniscule, nearly invisible",
	"a humongous, eye-popping",
	"a teeny-tot",
	"a compact package",
	"an interstellar scale",
	"a tiny, almost non-existent",
	"a snack-sized, appetizing feast",
	"a micro-unit, feisty but cute",
	"a supreme, upper-tier size",
	"a itsy-bitsy, miniature charm",
}

var coinSides = []string{"heads", "tails"}

// coinFlips maps a prompt to the user who started it
var coinFlips = newPendingStore[string]()

// eightBall answers a question with a random reply
func eightBall(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	question, err := validation.ValidateString(stringOption(i, "question"), "Question")
	if err != nil {
		return userError(err, "")
	}
	answer, err := utils.RandomPick(eightBallAnswers)
	if err != nil {
		return &interactionError{err, "The magic 8-ball is out of answers"}
	}

	respond(s, i, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "🎱 The Magic 8-Ball",
			Description: fmt.Sprintf("**Question:** %s\n**Answer:** %s", question, answer),
			Color:       services.Config.Theme,
		}},
	})
	return nil
}

// peepee measures the member who asked
func peepee(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	size, err := utils.RandomPick(peepeeSizes)
	if err != nil {
		return &interactionError{err, "The ruler went missing"}
	}
	respond(s, i, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{peepeeEmbed(i.Member, size)},
	})
	return nil
}

func peepeeEmbed(member *discordgo.Member, size string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "PeePee Inspection Time",
		Description: fmt.Sprintf("%s has %s peepee!", displayName(member), size),
		Color:       0x5865F2,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: member.AvatarURL("128")},
	}
}

// coinFlip asks the user to pick a side before flipping
func coinFlip(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	id := coinFlips.add(i.Member.User.ID, coinTimeout, func(string) {
		content := "Confirmation not received within 15 seconds, cancelling"
		embeds := []*discordgo.MessageEmbed{}
		components := []discordgo.MessageComponent{}
		s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
			Content:    &content,
			Embeds:     &embeds,
			Components: &components,
		})
	})

	respond(s, i, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Coin Flip",
			Description: "Choose heads or tails by clicking a button.",
			Color:       services.Config.Theme,
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Heads", Style: discordgo.PrimaryButton, CustomID: customID(coinPrefix, id, "heads")},
				discordgo.Button{Label: "Tails", Style: discordgo.PrimaryButton, CustomID: customID(coinPrefix, id, "tails")},
			}},
		},
	})
	return nil
}

// pickSide flips the coin once the user has chosen
func pickSide(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	id, chosen, err := parseCustomID(i.MessageComponentData().CustomID)
	if err != nil {
		return &interactionError{err, "Couldn't handle component, invalid custom_id"}
	}

	owner, ok := coinFlips.peek(id)
	if !ok {
		whisper(s, i, "This coin flip has expired.")
		return nil
	}
	if owner != i.Member.User.ID {
		whisper(s, i, "You cannot use these buttons.")
		return nil
	}
	if _, ok := coinFlips.take(id); !ok {
		whisper(s, i, "This coin flip has expired.")
		return nil
	}

	landed, err := utils.RandomPick(coinSides)
	if err != nil {
		return &interactionError{err, "Couldn't flip the coin"}
	}

	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{{
				Title:       "Coin Flip Result",
				Description: coinFlipResult(chosen, landed),
				Color:       services.Config.Theme,
			}},
			Components: []discordgo.MessageComponent{},
		},
	})
	return nil
}

func coinFlipResult(chosen, landed string) string {
	result := fmt.Sprintf("You chose %s. The coin landed on %s.", chosen, landed)
	if chosen == landed {
		return result + " You win!"
	}
	return result + " You lose!"
}

// ping replies with the gateway heartbeat latency
func ping(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	reply(s, i, fmt.Sprintf("Pong! Latency is %dms.", s.HeartbeatLatency().Milliseconds()))
	return nil
}
