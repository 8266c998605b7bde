package history

import (
	"context"
	"time"

	"Nocturne/queue"

	"gorm.io/gorm"
)

const DefaultLimit = 10

// Play is one song that started playing in a guild
type Play struct {
	ID          uint      `gorm:"primaryKey"`
	GuildID     string    `gorm:"size:32;not null;index:idx_play_history_guild_played,priority:1"`
	URL         string    `gorm:"not null"`
	Title       string    `gorm:"not null"`
	RequestedBy string    `gorm:"size:32"`
	EnqueuedAt  time.Time `gorm:"not null"`
	PlayedAt    time.Time `gorm:"not null;index:idx_play_history_guild_played,priority:2,sort:desc"`
}

func (Play) TableName() string {
	return "play_history"
}

// Store keeps play history in Postgres and satisfies queue.Recorder
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Record(ctx context.Context, guildID string, item queue.QueueItem) error {
	play := Play{
		GuildID:     guildID,
		URL:         item.URL,
		Title:       item.Title,
		RequestedBy: item.RequestedBy,
		EnqueuedAt:  item.EnqueuedAt,
		PlayedAt:    s.now(),
	}
	return s.db.WithContext(ctx).Create(&play).Error
}

// Recent returns the guild's latest plays, newest first
func (s *Store) Recent(ctx context.Context, guildID string, limit int) ([]Play, error) {
	var plays []Play
	err := s.recent(s.db.WithContext(ctx), guildID, limit).Find(&plays).Error
	return plays, err
}

func (s *Store) recent(tx *gorm.DB, guildID string, limit int) *gorm.DB {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return tx.Model(&Play{}).
		Where("guild_id = ?", guildID).
		Order("played_at DESC").
		Limit(limit)
}
