package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// showServer describes the guild the command was used in
func showServer(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	guild, err := s.State.Guild(i.GuildID)
	if err != nil {
		if guild, err = s.Guild(i.GuildID); err != nil {
			return &interactionError{err, "Couldn't look up this server"}
		}
	}
	respond(s, i, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{serverEmbed(guild, services.Config.Theme)},
	})
	return nil
}

// showUser describes the member who used the command
func showUser(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	respond(s, i, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{userEmbed(i.Member, services.Config.Theme)},
	})
	return nil
}

func serverEmbed(guild *discordgo.Guild, theme int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: guild.Name,
		Color: theme,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Members", Value: fmt.Sprint(guild.MemberCount), Inline: true},
			{Name: "Owner", Value: "<@" + guild.OwnerID + ">", Inline: true},
			{Name: "Created", Value: snowflakeDate(guild.ID), Inline: true},
		},
	}
	if url := guild.IconURL("128"); url != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: url}
	}
	return embed
}

func userEmbed(member *discordgo.Member, theme int) *discordgo.MessageEmbed {
	roles := "None"
	if len(member.Roles) > 0 {
		mentions := make([]string, 0, len(member.Roles))
		for _, roleID := range member.Roles {
			mentions = append(mentions, "<@&"+roleID+">")
		}
		roles = strings.Join(mentions, ", ")
	}

	joined := "Unknown"
	if !member.JoinedAt.IsZero() {
		joined = fmt.Sprintf("<t:%d:D>", member.JoinedAt.Unix())
	}

	return &discordgo.MessageEmbed{
		Title: displayName(member),
		Color: theme,
		Thumbnail: &discordgo.MessageEmbedThumbnail{
			URL: member.AvatarURL("128"),
		},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Username", Value: member.User.Username, Inline: true},
			{Name: "ID", Value: member.User.ID, Inline: true},
			{Name: "Joined Discord", Value: snowflakeDate(member.User.ID), Inline: true},
			{Name: "Joined Server", Value: joined, Inline: true},
			{Name: "Roles", Value: roles},
		},
	}
}

// snowflakeDate renders the creation date encoded in a Discord id
func snowflakeDate(id string) string {
	created, err := discordgo.SnowflakeTimestamp(id)
	if err != nil {
		return "Unknown"
	}
	return fmt.Sprintf("<t:%d:D>", created.Unix())
}

// displayName prefers the server nickname, then the global display name
func displayName(member *discordgo.Member) string {
	switch {
	case member.Nick != "":
		return member.Nick
	case member.User.GlobalName != "":
		return member.User.GlobalName
	}
	return member.User.Username
}
