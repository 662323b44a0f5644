package config

import "time"

// StorageBackend selects the persistence implementation.
type StorageBackend string

const (
	BackendMemory StorageBackend = "memory"
	BackendSQLite StorageBackend = "sqlite"
	BackendRedis  StorageBackend = "redis"
)

// RedisConfig holds connection parameters for the shared Redis backend.
// When Redis is selected the same connection parameters also carry the
// cross-instance pub/sub channels.
type RedisConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	Password  string `mapstructure:"password" yaml:"password"`
	DB        int    `mapstructure:"db" yaml:"db"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// StorageConfig selects a backend and its connection parameters.
type StorageConfig struct {
	Backend    StorageBackend `mapstructure:"backend" yaml:"backend"`
	SQLitePath string         `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	Redis      RedisConfig    `mapstructure:"redis" yaml:"redis"`
}

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// Version is the protocol version reported to every connecting client.
	Version int `mapstructure:"version" yaml:"version"`

	// WaitForPropsBeforeLobby delays lobby entry until the client has sent
	// its first user-props message.
	WaitForPropsBeforeLobby bool `mapstructure:"wait_for_props_before_lobby" yaml:"wait_for_props_before_lobby"`
	// SendLobbyUsers sends each joiner a roster of current lobby occupants.
	SendLobbyUsers bool `mapstructure:"send_lobby_users" yaml:"send_lobby_users"`
	// BroadcastNewUserToLobby announces each joiner to the lobby.
	BroadcastNewUserToLobby bool `mapstructure:"broadcast_new_user_to_lobby" yaml:"broadcast_new_user_to_lobby"`

	// RoomLimit is the default max occupancy for rooms created without an
	// explicit limit. 0 means unbounded.
	RoomLimit int `mapstructure:"room_limit" yaml:"room_limit"`

	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                    ":8080",
		LogLevel:                "info",
		ReadHeaderTimeout:       5 * time.Second,
		ShutdownTimeout:         5 * time.Second,
		Version:                 1,
		SendLobbyUsers:          true,
		BroadcastNewUserToLobby: true,
		Storage: StorageConfig{
			Backend:    BackendMemory,
			SQLitePath: "huddle.db",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "huddle",
			},
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.RoomLimit != 0 {
		c.RoomLimit = other.RoomLimit
	}
	if other.Storage.Backend != "" {
		c.Storage.Backend = other.Storage.Backend
	}
	if other.Storage.SQLitePath != "" {
		c.Storage.SQLitePath = other.Storage.SQLitePath
	}
	if other.Storage.Redis.Addr != "" {
		c.Storage.Redis = other.Storage.Redis
	}
}
