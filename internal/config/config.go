// Package config loads the hub's settings from defaults, a .env file, a TOML
// file and MCHUB_* environment variables, in that order of precedence.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gstoney/mchub"
	"github.com/gstoney/mchub/handlers"
	"github.com/gstoney/mchub/internal/logging"
	"github.com/gstoney/mchub/status"
	"github.com/joho/godotenv"
)

const EnvPrefix = "MCHUB_"

type Config struct {
	// Address the protocol listener binds, e.g. ":25565".
	Listen string
	// goroutine or netpoll.
	Backend string
	// Largest frame accepted from a client, in bytes.
	MaxPacketLen int32
	// Maximum number of concurrent connections. Zero means unlimited.
	MaxConnections int
	// Close status connections after answering a ping.
	CloseAfterPing bool

	Log    logging.Config
	Status StatusConfig
	Login  LoginConfig
	Admin  AdminConfig
}

type StatusConfig struct {
	VersionName string
	Protocol    int32
	MaxPlayers  int
	MOTD        string
	// Path to a 64x64 PNG shown in the server list.
	Favicon string
	// How long a built status document is reused. Zero disables caching.
	CacheTTL time.Duration

	EC2 EC2Config
}

// EC2Config names the instance running the real game server. Its state is
// shown in the server list when InstanceID is set.
type EC2Config struct {
	InstanceID string
	Region     string
}

type LoginConfig struct {
	DisconnectMessage string
}

type AdminConfig struct {
	// Address of the metrics and health HTTP endpoint. Blank disables it.
	Listen string
}

func Default() Config {
	st := status.Default()
	return Config{
		Listen:         ":25565",
		Backend:        string(mchub.BackendGoroutine),
		MaxPacketLen:   mchub.DefaultMaxPacketLen,
		MaxConnections: 0,
		CloseAfterPing: true,
		Log: logging.Config{
			Level:  "info",
			Format: "text",
		},
		Status: StatusConfig{
			VersionName: st.Version.Name,
			Protocol:    st.Version.Protocol,
			MaxPlayers:  st.Players.Max,
			MOTD:        st.Description.Text,
			CacheTTL:    5 * time.Second,
		},
		Login: LoginConfig{
			DisconnectMessage: handlers.DefaultDisconnectMessage,
		},
		Admin: AdminConfig{
			Listen: "127.0.0.1:9225",
		},
	}
}

type fileConfig struct {
	Listen         string `toml:"listen"`
	Backend        string `toml:"backend"`
	MaxPacketLen   int32  `toml:"max_packet_len"`
	MaxConnections int    `toml:"max_connections"`
	CloseAfterPing bool   `toml:"close_after_ping"`

	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
		File   string `toml:"file"`
	} `toml:"log"`

	Status struct {
		VersionName string `toml:"version_name"`
		Protocol    int32  `toml:"protocol"`
		MaxPlayers  int    `toml:"max_players"`
		MOTD        string `toml:"motd"`
		Favicon     string `toml:"favicon"`
		CacheTTL    string `toml:"cache_ttl"`

		EC2 struct {
			InstanceID string `toml:"instance_id"`
			Region     string `toml:"region"`
		} `toml:"ec2"`
	} `toml:"status"`

	Login struct {
		DisconnectMessage string `toml:"disconnect_message"`
	} `toml:"login"`

	Admin struct {
		Listen string `toml:"listen"`
	} `toml:"admin"`
}

// Load builds the configuration. Either path may be blank; a missing .env
// file is not an error.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("backend") {
		cfg.Backend = strings.TrimSpace(raw.Backend)
	}
	if meta.IsDefined("max_packet_len") {
		cfg.MaxPacketLen = raw.MaxPacketLen
	}
	if meta.IsDefined("max_connections") {
		cfg.MaxConnections = raw.MaxConnections
	}
	if meta.IsDefined("close_after_ping") {
		cfg.CloseAfterPing = raw.CloseAfterPing
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "format") {
		cfg.Log.Format = strings.TrimSpace(raw.Log.Format)
	}
	if meta.IsDefined("log", "file") {
		cfg.Log.File = strings.TrimSpace(raw.Log.File)
	}

	if meta.IsDefined("status", "version_name") {
		cfg.Status.VersionName = raw.Status.VersionName
	}
	if meta.IsDefined("status", "protocol") {
		cfg.Status.Protocol = raw.Status.Protocol
	}
	if meta.IsDefined("status", "max_players") {
		cfg.Status.MaxPlayers = raw.Status.MaxPlayers
	}
	if meta.IsDefined("status", "motd") {
		cfg.Status.MOTD = raw.Status.MOTD
	}
	if meta.IsDefined("status", "favicon") {
		cfg.Status.Favicon = strings.TrimSpace(raw.Status.Favicon)
	}
	if meta.IsDefined("status", "cache_ttl") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Status.CacheTTL))
		if err != nil {
			return fmt.Errorf("parse status.cache_ttl: %w", err)
		}
		cfg.Status.CacheTTL = d
	}
	if meta.IsDefined("status", "ec2", "instance_id") {
		cfg.Status.EC2.InstanceID = strings.TrimSpace(raw.Status.EC2.InstanceID)
	}
	if meta.IsDefined("status", "ec2", "region") {
		cfg.Status.EC2.Region = strings.TrimSpace(raw.Status.EC2.Region)
	}

	if meta.IsDefined("login", "disconnect_message") {
		cfg.Login.DisconnectMessage = raw.Login.DisconnectMessage
	}

	if meta.IsDefined("admin", "listen") {
		cfg.Admin.Listen = strings.TrimSpace(raw.Admin.Listen)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, set func(int64)) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			set(n)
		}
	}

	str("LISTEN", &cfg.Listen)
	str("BACKEND", &cfg.Backend)
	num("MAX_PACKET_LEN", func(n int64) { cfg.MaxPacketLen = int32(n) })
	num("MAX_CONNECTIONS", func(n int64) { cfg.MaxConnections = int(n) })
	if v, ok := os.LookupEnv(EnvPrefix + "CLOSE_AFTER_PING"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sCLOSE_AFTER_PING: %w", EnvPrefix, err))
		}
		cfg.CloseAfterPing = b
	}

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("LOG_FILE", &cfg.Log.File)

	str("STATUS_VERSION_NAME", &cfg.Status.VersionName)
	num("STATUS_PROTOCOL", func(n int64) { cfg.Status.Protocol = int32(n) })
	num("STATUS_MAX_PLAYERS", func(n int64) { cfg.Status.MaxPlayers = int(n) })
	str("STATUS_MOTD", &cfg.Status.MOTD)
	str("STATUS_FAVICON", &cfg.Status.Favicon)
	if v, ok := os.LookupEnv(EnvPrefix + "STATUS_CACHE_TTL"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSTATUS_CACHE_TTL: %w", EnvPrefix, err))
		}
		cfg.Status.CacheTTL = d
	}
	str("EC2_INSTANCE_ID", &cfg.Status.EC2.InstanceID)
	str("EC2_REGION", &cfg.Status.EC2.Region)

	str("LOGIN_DISCONNECT_MESSAGE", &cfg.Login.DisconnectMessage)
	str("ADMIN_LISTEN", &cfg.Admin.Listen)

	return errors.Join(errs...)
}

func (c Config) Validate() error {
	if _, err := mchub.ParseBackend(c.Backend); err != nil {
		return err
	}
	if c.Listen == "" {
		return errors.New("listen address is empty")
	}
	if c.MaxPacketLen <= 0 || c.MaxPacketLen > mchub.DefaultMaxPacketLen {
		return fmt.Errorf("max_packet_len must be in 1..%d", mchub.DefaultMaxPacketLen)
	}
	if c.MaxConnections < 0 {
		return errors.New("max_connections must not be negative")
	}
	if c.Status.CacheTTL < 0 {
		return errors.New("status.cache_ttl must not be negative")
	}
	return nil
}

// Document builds the status document described by c. The favicon, if
// configured, is read from disk.
func (c StatusConfig) Document() (status.Status, error) {
	st := status.Default()
	st.Version.Name = c.VersionName
	st.Version.Protocol = c.Protocol
	st.Players.Max = c.MaxPlayers
	st.Description.Text = c.MOTD

	if c.Favicon != "" {
		b, err := os.ReadFile(c.Favicon)
		if err != nil {
			return status.Status{}, fmt.Errorf("read favicon: %w", err)
		}
		st.Favicon = "data:image/png;base64," + base64.StdEncoding.EncodeToString(b)
	}
	return st, nil
}
