package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"Nocturne/history"
	"Nocturne/player"
	"Nocturne/queue"
	"Nocturne/searchy"
	"Nocturne/validation"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
)

const (
	selectPrefix  = "s"
	cancelChoice  = "cancel"
	buttonsPerRow = 5
	queuePageSize = 10
)

type songSelection struct {
	guildID     string
	channelID   string
	requesterID string
	results     []searchy.SearchResult
	interaction *discordgo.Interaction
}

var selections = newPendingStore[songSelection]()

// playSong searches for a song and lets the requester pick one of the results
func playSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	guildID, err := validation.ValidateGuildID(i.GuildID)
	if err != nil {
		return userError(err, "")
	}
	query, err := validation.ValidateString(stringOption(i, "song"), "Song name")
	if err != nil {
		return userError(err, "")
	}
	channelID, err := validation.ValidateVoiceChannel(s.State, guildID, i.Member)
	if err != nil {
		return userError(err, "")
	}

	deferReply(s, i)

	results, err := services.Searchy.Search(ctx, query)
	if err != nil {
		log.WithContext(ctx).WithError(err).Error("Song search failed")
		editReply(s, i.Interaction, userMessage(err, "❌ An error occurred while searching for the song."))
		return nil
	}
	if len(results) == 0 {
		editReply(s, i.Interaction, fmt.Sprintf("No results found for **%s**.", query))
		return nil
	}

	id := selections.add(songSelection{
		guildID:     guildID,
		channelID:   channelID,
		requesterID: i.Member.User.ID,
		results:     results,
		interaction: i.Interaction,
	}, services.Config.SelectionTimeout, func(sel songSelection) {
		editReply(s, sel.interaction, "Selection timed out.")
	})

	content, components := selectionMessage(id, results)
	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Components: &components,
	})
	if err != nil {
		selections.take(id)
		return &interactionError{err, "Couldn't show search results"}
	}
	return nil
}

// selectSong handles a button press on the search results of playSong
func selectSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	id, choice, err := parseCustomID(i.MessageComponentData().CustomID)
	if err != nil {
		return &interactionError{err, "Couldn't handle component, invalid custom_id"}
	}

	sel, ok := selections.peek(id)
	if !ok {
		whisper(s, i, "This selection has expired.")
		return nil
	}
	if i.Member.User.ID != sel.requesterID {
		whisper(s, i, "You cannot use these buttons.")
		return nil
	}
	if _, ok := selections.take(id); !ok {
		whisper(s, i, "This selection has expired.")
		return nil
	}

	if choice == cancelChoice {
		updateMessage(s, i, "Selection cancelled.")
		return nil
	}
	index, err := strconv.Atoi(choice)
	if err != nil || index < 0 || index >= len(sel.results) {
		return &interactionError{fmt.Errorf("selection %q out of range", choice), "That selection is not valid."}
	}
	song := sel.results[index]

	updateMessage(s, i, fmt.Sprintf("🔎 Selected **%s**", song.Title))

	conn, err := voice.connect(s, sel.guildID, sel.channelID)
	if err != nil {
		log.WithContext(ctx).WithError(err).Error("Failed to join voice channel")
		msg := "❌ Couldn't join your voice channel."
		if errors.Is(err, errOtherChannel) {
			msg = "I'm already in another voice channel 😅"
		}
		editReply(s, sel.interaction, msg)
		return nil
	}

	length, err := services.Queue.AddToQueue(sel.guildID, queue.QueueItem{
		URL:         song.URL,
		Title:       song.Title,
		RequestedBy: sel.requesterID,
	})
	if err != nil {
		editReply(s, sel.interaction, userMessage(err, "❌ Couldn't add the song to the queue."))
		return nil
	}

	if length == 1 {
		editReply(s, sel.interaction, fmt.Sprintf("▶️ Playing: **%s** (`%s`)", song.Title, song.Duration))
		go services.Queue.PlayNext(sel.guildID, conn, interactionNotifier{s, sel.interaction})
		return nil
	}
	editReply(s, sel.interaction, fmt.Sprintf("🎵 **%s** (`%s`) added to the queue at position %d", song.Title, song.Duration, length))
	return nil
}

// showQueue lists the guild's queue
func showQueue(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	view := services.Queue.Current(i.GuildID)
	if len(view.Items) == 0 {
		reply(s, i, "The queue is empty.")
		return nil
	}
	respond(s, i, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{queueEmbed(view, services.Config.Theme)},
	})
	return nil
}

// showNext shows the song after the current one
func showNext(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	items := services.Queue.GetQueue(i.GuildID)
	if len(items) < 2 {
		reply(s, i, "There are no songs coming up next.")
		return nil
	}
	next := items[1]
	reply(s, i, fmt.Sprintf("Next up: **%s** (requested by <@%s>)", next.Title, next.RequestedBy))
	return nil
}

// skipSong skips the current song
func skipSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	if _, err := validation.ValidateVoiceChannel(s.State, i.GuildID, i.Member); err != nil {
		return userError(err, "")
	}

	conn, ok := voice.get(i.GuildID)
	if !ok {
		reply(s, i, "Nothing is playing right now 😶")
		return nil
	}
	if len(services.Queue.GetQueue(i.GuildID)) == 0 {
		reply(s, i, "The queue is empty.")
		return nil
	}

	deferReply(s, i)
	skipped, ok := services.Queue.Skip(i.GuildID, conn, interactionNotifier{s, i.Interaction})
	if !ok {
		editReply(s, i.Interaction, "The queue is empty.")
		return nil
	}
	editReply(s, i.Interaction, fmt.Sprintf("⏭️ Skipped **%s**.", skipped.Title))
	return nil
}

// stopMusic clears the queue and leaves voice
func stopMusic(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	if _, err := validation.ValidateVoiceChannel(s.State, i.GuildID, i.Member); err != nil {
		return userError(err, "")
	}

	var conn player.Connection
	if c, ok := voice.get(i.GuildID); ok {
		conn = c
	} else if len(services.Queue.GetQueue(i.GuildID)) == 0 {
		reply(s, i, "There is no song currently playing.")
		return nil
	}

	services.Queue.Stop(i.GuildID, conn)
	reply(s, i, "⏹️ Stopped the music and left the voice channel.")
	return nil
}

// pauseSong pauses the current song
func pauseSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	p, ok := services.Players.GetPlayer(i.GuildID)
	if !ok || !p.Pause() {
		reply(s, i, "Nothing is playing right now 😶")
		return nil
	}
	services.Players.Touch(i.GuildID)
	reply(s, i, "⏸️ Paused")
	return nil
}

// resumeSong resumes the current song
func resumeSong(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	p, ok := services.Players.GetPlayer(i.GuildID)
	if !ok || !p.Unpause() {
		reply(s, i, "Nothing is paused right now 😶")
		return nil
	}
	services.Players.Touch(i.GuildID)
	reply(s, i, "▶️ Resumed")
	return nil
}

// showHistory lists the songs recently played in the guild
func showHistory(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
	if services.History == nil {
		whisper(s, i, "Play history is not enabled on this bot.")
		return nil
	}

	deferReply(s, i)
	plays, err := services.History.Recent(ctx, i.GuildID, history.DefaultLimit)
	if err != nil {
		log.WithContext(ctx).WithError(err).Error("Failed to load play history")
		editReply(s, i.Interaction, "❌ Couldn't load play history.")
		return nil
	}
	if len(plays) == 0 {
		editReply(s, i.Interaction, "Nothing has been played in this server yet.")
		return nil
	}
	editReply(s, i.Interaction, "", historyEmbed(plays, services.Config.Theme))
	return nil
}

// updateMessage edits the message a component is attached to, removing its buttons
func updateMessage(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: []discordgo.MessageComponent{},
		},
	})
	if err != nil {
		log.WithError(err).Warn("Failed to update component message")
	}
}

func selectionMessage(id string, results []searchy.SearchResult) (string, []discordgo.MessageComponent) {
	var b strings.Builder
	b.WriteString("Select a song to play:\n")
	for index, result := range results {
		fmt.Fprintf(&b, "%d. %s (%s)\n", index+1, result.Title, result.Duration)
	}

	buttons := make([]discordgo.MessageComponent, 0, len(results)+1)
	for index := range results {
		buttons = append(buttons, discordgo.Button{
			Label:    strconv.Itoa(index + 1),
			Style:    discordgo.PrimaryButton,
			CustomID: customID(selectPrefix, id, strconv.Itoa(index)),
		})
	}
	buttons = append(buttons, discordgo.Button{
		Label:    "Cancel",
		Style:    discordgo.SecondaryButton,
		CustomID: customID(selectPrefix, id, cancelChoice),
	})

	var rows []discordgo.MessageComponent
	for start := 0; start < len(buttons); start += buttonsPerRow {
		end := min(start+buttonsPerRow, len(buttons))
		rows = append(rows, discordgo.ActionsRow{Components: buttons[start:end]})
	}
	return strings.TrimSuffix(b.String(), "\n"), rows
}

func queueEmbed(view queue.GuildQueue, theme int) *discordgo.MessageEmbed {
	var b strings.Builder
	for index, item := range view.Items {
		if index == queuePageSize {
			break
		}
		marker := fmt.Sprintf("%d.", index+1)
		if index == 0 && view.CurrentItem != nil {
			marker = "▶️"
		}
		fmt.Fprintf(&b, "%s %s (requested by <@%s>)\n", marker, item.Title, item.RequestedBy)
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Current Queue",
		Description: strings.TrimSuffix(b.String(), "\n"),
		Color:       theme,
	}
	if extra := len(view.Items) - queuePageSize; extra > 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("and %d more", extra)}
	}
	return embed
}

func historyEmbed(plays []history.Play, theme int) *discordgo.MessageEmbed {
	var b strings.Builder
	for _, play := range plays {
		fmt.Fprintf(&b, "<t:%d:R> [%s](%s) (requested by <@%s>)\n", play.PlayedAt.Unix(), play.Title, play.URL, play.RequestedBy)
	}
	return &discordgo.MessageEmbed{
		Title:       "Recently Played",
		Description: strings.TrimSuffix(b.String(), "\n"),
		Color:       theme,
	}
}
