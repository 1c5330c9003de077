package config

type Config struct {
	Clan     ClanConfig     `json:"clan"`
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Stats    StatsConfig    `json:"stats"`
	Dispatch DispatchConfig `json:"dispatch,omitempty"`
	Digest   DigestConfig   `json:"digest,omitempty"`
	Source   SourceConfig   `json:"source,omitempty"`
}

type ClanConfig struct {
	// Tag of the monitored clan, e.g. "#2PP". Overridable via CLAN_TAG.
	Tag string `json:"tag"`
}

type TelegramConfig struct {
	// Token is the bot token. Overridable via TELEGRAM_TOKEN (or .env).
	Token string `json:"token"`

	// Chats lists the named chats the directory is built from. Telegram has
	// no server-side "list channels by name", so names live here.
	Chats []ChatConfig `json:"chats"`

	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type ChatConfig struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type LoggingConfig struct {
	Level   string         `json:"level"`
	Console bool           `json:"console"`
	File    LoggingFile    `json:"file"`
	Channel LoggingChannel `json:"channel"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingChannel mirrors WARN+ lines into the Default channel.
type LoggingChannel struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

type StatsConfig struct {
	Path string `json:"path"`
	// BusyTimeout is a Go duration string (sqlite busy_timeout).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type DispatchConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type DigestConfig struct {
	Enabled bool `json:"enabled"`
	// Schedule is a cron spec; default "0 9 * * *".
	Schedule string `json:"schedule,omitempty"`
}

// SourceConfig selects the change source. Driver "replay" reads a JSON
// Lines file of changes (development / integration testing); empty or
// "none" means changes arrive only via the app's Submit API.
type SourceConfig struct {
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path,omitempty"`
}
