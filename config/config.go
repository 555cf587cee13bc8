package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultNames is the fixed insert list used by the database probe.
var DefaultNames = []string{
	"Geert", "Jan", "Michel", "wang", "Jan", "Michel", "wang",
	"Jan", "Michel", "wang", "Jan", "Michel", "wang", "Jan", "Michel",
	"wang", "Jan", "Michel", "wang", "Jan", "Michel", "wang", "Jan",
	"Jan", "Michel", "wang",
}

// Duration lets TOML files spell timeouts as "3s" or "100ms".
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

type Broker struct {
	Brokers        []string `toml:"brokers"`
	ClientID       string   `toml:"client_id"`
	GroupID        string   `toml:"group_id"`
	Topic          string   `toml:"topic"`
	Partition      int      `toml:"partition"`
	SessionTimeout Duration `toml:"session_timeout"`
	AckTimeout     Duration `toml:"ack_timeout"`
	Payload        string   `toml:"payload"`
}

type Database struct {
	Host     string   `toml:"host"`
	Port     int      `toml:"port"`
	Name     string   `toml:"database"`
	User     string   `toml:"user"`
	Password string   `toml:"password"`
	Charset  string   `toml:"charset"`
	Table    string   `toml:"table"`
	Pause    Duration `toml:"pause"`
	Names    []string `toml:"names"`
}

// Addr returns host:port for the MySQL server.
func (d Database) Addr() string {
	return d.Host + ":" + strconv.Itoa(d.Port)
}

// Config is built once at startup and handed to each probe.
type Config struct {
	Broker   Broker   `toml:"broker"`
	Database Database `toml:"database"`
}

// Default returns the compiled-in connection constants.
func Default() *Config {
	return &Config{
		Broker: Broker{
			Brokers:        []string{"localhost:9091"},
			ClientID:       "sniffer",
			GroupID:        "sniffer",
			Topic:          "non_ddl_sql_collector",
			Partition:      0,
			SessionTimeout: Duration{60 * time.Second},
			AckTimeout:     Duration{3 * time.Second},
			Payload:        "haha",
		},
		Database: Database{
			Host:     "localhost",
			Port:     3358,
			Name:     "sniffer",
			User:     "root",
			Password: "",
			Charset:  "utf8",
			Table:    "names",
			Pause:    Duration{100 * time.Millisecond},
			Names:    append([]string(nil), DefaultNames...),
		},
	}
}

// Load resolves defaults, then the TOML file named by PROBE_CONFIG, then env overrides.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("PROBE_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := GetEnv("KAFKA_BROKERS", ""); v != "" {
		c.Broker.Brokers = splitList(v)
	}
	c.Broker.Topic = GetEnv("KAFKA_TOPIC", c.Broker.Topic)
	c.Broker.GroupID = GetEnv("KAFKA_GROUP_ID", c.Broker.GroupID)
	c.Database.Host = GetEnv("MYSQL_HOST", c.Database.Host)
	c.Database.Name = GetEnv("MYSQL_DATABASE", c.Database.Name)
	c.Database.User = GetEnv("MYSQL_USER", c.Database.User)
	c.Database.Password = GetEnv("MYSQL_PASSWORD", c.Database.Password)
	if v := GetEnv("MYSQL_PORT", ""); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MYSQL_PORT: %w", err)
		}
		c.Database.Port = port
	}
	return nil
}

// Validate reports the first field that cannot be used to connect.
func (c *Config) Validate() error {
	if len(c.Broker.Brokers) == 0 {
		return fmt.Errorf("broker: no brokers configured")
	}
	if c.Broker.Topic == "" {
		return fmt.Errorf("broker: topic is empty")
	}
	if c.Broker.AckTimeout.Duration <= 0 || c.Broker.SessionTimeout.Duration <= 0 {
		return fmt.Errorf("broker: timeouts must be positive")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database: host is empty")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("database: invalid port %d", c.Database.Port)
	}
	if c.Database.Table == "" {
		return fmt.Errorf("database: table is empty")
	}
	if c.Database.Pause.Duration < 0 {
		return fmt.Errorf("database: pause must not be negative")
	}
	return nil
}

// GetEnv returns the value of the environment variable or a default value
func GetEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
