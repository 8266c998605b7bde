package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Nocturne/config"
	"Nocturne/history"
	"Nocturne/player"
	"Nocturne/queue"
	"Nocturne/searchy"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
)

// Services are the long lived components command handlers work with
type Services struct {
	Config  *config.Config
	Queue   *queue.Manager
	Players *player.Pool
	Searchy *searchy.Client
	History *history.Store // nil when no database is configured
}

var (
	commands = &Commands{}
	services *Services
	voice    = newVoiceRegistry()
)

// RegisterSlashCommands adds all slash commands to the session.
func RegisterSlashCommands(s *discordgo.Session, svc *Services) {
	services = svc

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "play",
			Description: "Search YouTube and queue a song.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "song",
					Description: "The name of the song to play",
					Required:    true,
				},
			},
		},
		playSong,
	)
	commands.AddComponent(selectPrefix, selectSong)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "queue",
			Description: "Show the current music queue.",
		},
		showQueue,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "next",
			Description: "Show the next song in the queue.",
		},
		showNext,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "skip",
			Description: "Skip the current song.",
		},
		skipSong,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "stop",
			Description: "Stop the music and leave the voice channel.",
		},
		stopMusic,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "pause",
			Description: "Pause the current song.",
		},
		pauseSong,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "resume",
			Description: "Resume the paused song.",
		},
		resumeSong,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "history",
			Description: "Show the songs played recently in this server.",
		},
		showHistory,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "8ball",
			Description: "Ask the magic 8-ball a question.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "question",
					Description: "The question you want to ask",
					Required:    true,
				},
			},
		},
		eightBall,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "coinflip",
			Description: "Flip a coin and choose heads or tails.",
		},
		coinFlip,
	)
	commands.AddComponent(coinPrefix, pickSide)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "peepee",
			Description: "Get your peepee size.",
		},
		peepee,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "server",
			Description: "Provides information about the server.",
		},
		showServer,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "user",
			Description: "Replies with your user info.",
		},
		showUser,
	)

	commands.Add(
		&discordgo.ApplicationCommand{
			Name:        "ping",
			Description: "Replies with bot latency.",
		},
		ping,
	)

	if err := commands.Register(s, svc.Config.AppID); err != nil {
		log.WithError(err).Error("Failed to register slash commands")
	}
}

// Shutdown disconnects every voice connection opened by commands
func Shutdown() {
	voice.destroyAll()
}

type CommandHandler func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError

// Commands routes slash commands by name and components by custom_id prefix
type Commands struct {
	commands          []*discordgo.ApplicationCommand
	handlers          map[string]CommandHandler
	componentHandlers map[string]CommandHandler
}

// Add registers a slash command and its handler
func (c *Commands) Add(com *discordgo.ApplicationCommand, handler CommandHandler) {
	c.commands = append(c.commands, com)
	if c.handlers == nil {
		c.handlers = map[string]CommandHandler{}
	}
	c.handlers[com.Name] = handler
}

// AddComponent routes every component whose custom_id starts with "<prefix>:"
func (c *Commands) AddComponent(prefix string, handler CommandHandler) {
	if c.componentHandlers == nil {
		c.componentHandlers = map[string]CommandHandler{}
	}
	c.componentHandlers[prefix] = handler
}

// Register overwrites the application's slash commands and starts routing interactions
func (c *Commands) Register(s *discordgo.Session, appID string) error {
	s.AddHandler(c.route)

	if _, err := s.ApplicationCommandBulkOverwrite(appID, "", c.commands); err != nil {
		log.WithError(err).Error("Failed to create commands")
		return err
	}
	log.WithFields(log.Fields{"commands": len(c.commands)}).Info("Registered slash commands")
	return nil
}

func (c *Commands) route(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		c.invoke(s, i, "application", name, c.handlers[name])
	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		prefix, _, ok := strings.Cut(customID, ":")
		if !ok {
			iErr := &interactionError{
				fmt.Errorf("malformed custom_id %q on message %s", customID, i.Message.ID),
				"Couldn't handle component, invalid custom_id",
			}
			iErr.Handle(s, i)
			return
		}
		c.invoke(s, i, "component", prefix, c.componentHandlers[prefix])
	}
}

// invoke runs handler with the interaction's log fields attached to ctx
func (c *Commands) invoke(s *discordgo.Session, i *discordgo.InteractionCreate, kind, name string, handler CommandHandler) {
	if handler == nil {
		log.WithFields(log.Fields{"interaction_type": kind, "command": name}).Warn("No handler for interaction")
		return
	}
	user, iErr := checkDirectMessage(i)
	if iErr != nil {
		iErr.Handle(s, i)
		return
	}

	fields := log.Fields{
		"user_id":          user.ID,
		"user":             user.Username,
		"guild_id":         i.GuildID,
		"channel_id":       i.ChannelID,
		"interaction_type": kind,
		"command":          name,
	}
	if channel, err := s.State.Channel(i.ChannelID); err == nil {
		fields["channel_name"] = channel.Name
	}
	ctx := context.WithValue(context.Background(), log.Key, fields)

	log.WithContext(ctx).Info("Invoking " + kind + " command")
	if iErr := handler(ctx, s, i); iErr != nil {
		iErr.Handle(s, i)
	}
}

// Cannot be an interaction through DMs
func checkDirectMessage(i *discordgo.InteractionCreate) (*discordgo.User, *interactionError) {
	if i.GuildID == "" || i.Member == nil {
		return nil, &interactionError{
			errors.New("command invoked outside of valid guild"),
			"This command can only be used in a server",
		}
	}
	return i.Member.User, nil
}
