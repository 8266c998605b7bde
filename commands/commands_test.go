package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"Nocturne/queue"
	"Nocturne/searchy"
	"Nocturne/validation"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.InitSimpleLogger(&log.Config{Output: io.Discard})
	os.Exit(m.Run())
}

func componentInteraction(customID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   "guild",
		ChannelID: "channel",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "42", Username: "nocturne"}},
		Message:   &discordgo.Message{ID: "message"},
		Data:      discordgo.MessageComponentInteractionData{CustomID: customID},
	}}
}

func TestCommands_RoutesComponentsByPrefix(t *testing.T) {
	var got []string
	c := &Commands{}
	c.AddComponent("s", func(ctx context.Context, _ *discordgo.Session, i *discordgo.InteractionCreate) *interactionError {
		fields, _ := ctx.Value(log.Key).(log.Fields)
		assert.Equal(t, "42", fields["user_id"])
		assert.Equal(t, "component", fields["interaction_type"])
		got = append(got, "s:"+i.MessageComponentData().CustomID)
		return nil
	})
	c.AddComponent("c", func(context.Context, *discordgo.Session, *discordgo.InteractionCreate) *interactionError {
		got = append(got, "c")
		return nil
	})

	s := &discordgo.Session{State: discordgo.NewState()}
	c.route(s, componentInteraction("s:abc:1"))
	c.route(s, componentInteraction("c:def:heads"))
	c.route(s, componentInteraction("x:ghi:1"))

	assert.Equal(t, []string{"s:s:abc:1", "c"}, got)
}

func TestCommands_RoutesSlashCommandsByName(t *testing.T) {
	called := 0
	c := &Commands{}
	c.Add(&discordgo.ApplicationCommand{Name: "ping"}, func(context.Context, *discordgo.Session, *discordgo.InteractionCreate) *interactionError {
		called++
		return nil
	})

	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: "guild",
		Member:  &discordgo.Member{User: &discordgo.User{ID: "42"}},
		Data:    discordgo.ApplicationCommandInteractionData{Name: "ping"},
	}}
	s := &discordgo.Session{State: discordgo.NewState()}
	c.route(s, i)

	i.Data = discordgo.ApplicationCommandInteractionData{Name: "unknown"}
	c.route(s, i)

	assert.Equal(t, 1, called)
	assert.Len(t, c.commands, 1)
}

func TestPendingStore_TakeOnce(t *testing.T) {
	store := newPendingStore[string]()
	id := store.add("user", time.Minute, func(string) { t.Error("entry should not expire") })

	value, ok := store.peek(id)
	require.True(t, ok)
	assert.Equal(t, "user", value)

	value, ok = store.take(id)
	require.True(t, ok)
	assert.Equal(t, "user", value)

	_, ok = store.take(id)
	assert.False(t, ok)
	assert.Zero(t, store.len())
}

func TestPendingStore_Expires(t *testing.T) {
	store := newPendingStore[int]()
	expired := make(chan int, 1)
	id := store.add(7, 10*time.Millisecond, func(v int) { expired <- v })

	select {
	case v := <-expired:
		assert.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("entry never expired")
	}

	_, ok := store.peek(id)
	assert.False(t, ok)
}

func TestParseCustomID(t *testing.T) {
	id, choice, err := parseCustomID(customID(selectPrefix, "abc", "2"))
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
	assert.Equal(t, "2", choice)

	for _, bad := range []string{"s", "s:abc", "s::1", "s:abc:"} {
		_, _, err := parseCustomID(bad)
		assert.Error(t, err, bad)
	}
}

func TestSelectionMessage(t *testing.T) {
	results := []searchy.SearchResult{
		{URL: "https://youtu.be/aaaaaaaaaaa", Title: "First", Duration: "3:05"},
		{URL: "https://youtu.be/bbbbbbbbbbb", Title: "Second", Duration: "Unknown"},
		{URL: "https://youtu.be/ccccccccccc", Title: "Third", Duration: "1:00:00"},
		{URL: "https://youtu.be/ddddddddddd", Title: "Fourth", Duration: "0:45"},
		{URL: "https://youtu.be/eeeeeeeeeee", Title: "Fifth", Duration: "2:00"},
	}

	content, rows := selectionMessage("abc", results)

	assert.True(t, strings.HasPrefix(content, "Select a song to play:\n1. First (3:05)"))
	assert.Contains(t, content, "5. Fifth (2:00)")

	// five numbered buttons fill the first row, cancel spills into a second
	require.Len(t, rows, 2)
	first := rows[0].(discordgo.ActionsRow)
	require.Len(t, first.Components, 5)
	assert.Equal(t, "s:abc:0", first.Components[0].(discordgo.Button).CustomID)
	assert.Equal(t, "5", first.Components[4].(discordgo.Button).Label)

	second := rows[1].(discordgo.ActionsRow)
	require.Len(t, second.Components, 1)
	assert.Equal(t, "s:abc:cancel", second.Components[0].(discordgo.Button).CustomID)

	for _, row := range rows {
		for _, c := range row.(discordgo.ActionsRow).Components {
			assert.Equal(t, selectPrefix, string(c.(discordgo.Button).CustomID[0]))
		}
	}
}

func TestQueueEmbed(t *testing.T) {
	items := make([]queue.QueueItem, 12)
	for n := range items {
		items[n] = queue.QueueItem{Title: fmt.Sprintf("Song %d", n+1), RequestedBy: "42"}
	}
	current := items[0]

	embed := queueEmbed(queue.GuildQueue{State: queue.StatePlaying, CurrentItem: &current, Items: items}, 0xFFFFFF)

	lines := strings.Split(embed.Description, "\n")
	require.Len(t, lines, queuePageSize)
	assert.Equal(t, "▶️ Song 1 (requested by <@42>)", lines[0])
	assert.Equal(t, "2. Song 2 (requested by <@42>)", lines[1])
	require.NotNil(t, embed.Footer)
	assert.Equal(t, "and 2 more", embed.Footer.Text)
	assert.Equal(t, 0xFFFFFF, embed.Color)
}

func TestQueueEmbed_NotPlaying(t *testing.T) {
	embed := queueEmbed(queue.GuildQueue{Items: []queue.QueueItem{{Title: "A", RequestedBy: "1"}}}, 0)

	assert.Equal(t, "1. A (requested by <@1>)", embed.Description)
	assert.Nil(t, embed.Footer)
}

func TestCoinFlipResult(t *testing.T) {
	assert.Equal(t, "You chose heads. The coin landed on heads. You win!", coinFlipResult("heads", "heads"))
	assert.Equal(t, "You chose heads. The coin landed on tails. You lose!", coinFlipResult("heads", "tails"))
}

func TestUserError(t *testing.T) {
	_, err := validation.ValidateString(nil, "Song name")
	assert.Equal(t, "Song name is required and cannot be empty", userError(err, "fallback").message)

	serr := &searchy.ServiceError{Op: "search", BaseURL: "http://searchy:8000", Err: errors.New("connection refused")}
	msg := userMessage(serr, "fallback")
	assert.Contains(t, msg, "Searchy service is unavailable")
	assert.Contains(t, msg, "http://searchy:8000")

	assert.Contains(t, userMessage(fmt.Errorf("video x: %w", searchy.ErrNotFound), "fallback"), "not available")
	assert.Equal(t, "fallback", userMessage(errors.New("boom"), "fallback"))
}

func TestStringOption(t *testing.T) {
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "play",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "song", Type: discordgo.ApplicationCommandOptionString, Value: "  lofi beats "},
			},
		},
	}}

	song := stringOption(i, "song")
	require.NotNil(t, song)
	assert.Equal(t, "  lofi beats ", *song)
	assert.Nil(t, stringOption(i, "question"))
}

func TestVoiceRegistry_UnknownGuild(t *testing.T) {
	_, ok := newVoiceRegistry().get("guild")
	assert.False(t, ok)
}

func TestServerEmbed(t *testing.T) {
	guild := &discordgo.Guild{ID: "175928847299117063", Name: "Nocturne HQ", MemberCount: 42, OwnerID: "1"}

	embed := serverEmbed(guild, 0x8A2BE2)

	assert.Equal(t, "Nocturne HQ", embed.Title)
	assert.Equal(t, 0x8A2BE2, embed.Color)
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "42", embed.Fields[0].Value)
	assert.Equal(t, "<@1>", embed.Fields[1].Value)
	assert.Equal(t, "<t:1462015105:D>", embed.Fields[2].Value)
	assert.Nil(t, embed.Thumbnail)
}

func TestUserEmbed(t *testing.T) {
	member := &discordgo.Member{
		User:     &discordgo.User{ID: "175928847299117063", Username: "nocturne", GlobalName: "Nocturne"},
		Roles:    []string{"10", "20"},
		JoinedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	embed := userEmbed(member, 0)

	assert.Equal(t, "Nocturne", embed.Title)
	values := map[string]string{}
	for _, field := range embed.Fields {
		values[field.Name] = field.Value
	}
	assert.Equal(t, map[string]string{
		"Username":       "nocturne",
		"ID":             "175928847299117063",
		"Joined Discord": "<t:1462015105:D>",
		"Joined Server":  "<t:1709251200:D>",
		"Roles":          "<@&10>, <@&20>",
	}, values)
}

func TestUserEmbed_NoRoles(t *testing.T) {
	member := &discordgo.Member{User: &discordgo.User{ID: "1", Username: "nocturne"}}

	embed := userEmbed(member, 0)

	assert.Equal(t, "nocturne", embed.Title)
	assert.Equal(t, "None", embed.Fields[4].Value)
	assert.Equal(t, "Unknown", embed.Fields[3].Value)
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		member   *discordgo.Member
		expected string
	}{
		{&discordgo.Member{Nick: "nick", User: &discordgo.User{Username: "user", GlobalName: "global"}}, "nick"},
		{&discordgo.Member{User: &discordgo.User{Username: "user", GlobalName: "global"}}, "global"},
		{&discordgo.Member{User: &discordgo.User{Username: "user"}}, "user"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, displayName(tt.member))
	}
}

func TestPeepeeEmbed(t *testing.T) {
	member := &discordgo.Member{Nick: "Twilight", User: &discordgo.User{ID: "1", Username: "twilight"}}

	embed := peepeeEmbed(member, "a smol bean")

	assert.Equal(t, "PeePee Inspection Time", embed.Title)
	assert.Equal(t, "Twilight has a smol bean peepee!", embed.Description)
	assert.NotEmpty(t, peepeeSizes)
}
