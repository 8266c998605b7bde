package config

import (
	"os"

	"github.com/spf13/viper"
)

func initDefaults() {
	viper.SetDefault("discord.token", os.Getenv("discord_token"))
	viper.SetDefault("discord.app.id", os.Getenv("discord_app_id"))
	viper.SetDefault("prefix", "^")
	viper.SetDefault("theme", 0x8A2BE2)

	// Searchy
	viper.SetDefault("searchy.url", "http://localhost:8000")
	viper.SetDefault("searchy.max_results", 5)
	viper.SetDefault("searchy.retry.attempts", 3)
	viper.SetDefault("searchy.retry.delay", "1s")
	viper.SetDefault("searchy.rate", 5)
	viper.SetDefault("searchy.timeout", "15s")

	// Storage, both optional
	viper.SetDefault("redis.address", os.Getenv("redis_address"))
	viper.SetDefault("cache.search", 600)
	viper.SetDefault("database.dsn", "")

	// Playback
	viper.SetDefault("player.sweep_interval", "30m")
	viper.SetDefault("player.ttl", "1h")
	viper.SetDefault("player.volume", 0.5)
	viper.SetDefault("queue.sweep_interval", "30m")
	viper.SetDefault("queue.ttl", "1h")
	viper.SetDefault("selection.timeout", "30s")
}
