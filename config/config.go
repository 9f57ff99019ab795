// Package config implements the session engine's config mapping: a small
// set of string-keyed options, loaded through spf13/viper and bindable to
// spf13/pflag flags or environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Key identifies a recognized configuration option.
type Key string

const (
	KeyMode              Key = "mode"
	KeyConnect           Key = "connect"
	KeyListen            Key = "listen"
	KeyMulticastLocator  Key = "multicast_locator"
	KeyScoutingTimeout   Key = "scouting_timeout"
	KeyScoutingWhat      Key = "scouting_what"
	KeySessionZID        Key = "session_zid"
	KeyDiagAddr          Key = "diag_addr"
)

// DefaultMulticastLocator is the scouting group locator used when
// MULTICAST_LOCATOR is not set.
const DefaultMulticastLocator = "udp/224.0.0.224:7446"

// Config is a plain key/string map, changed only through Insert; it owns no
// I/O of its own.
type Config struct {
	values map[Key]string
}

// New builds an empty Config.
func New() *Config {
	return &Config{values: make(map[Key]string)}
}

// Get returns the raw string for key, or ok=false if unset.
func (c *Config) Get(key Key) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// GetOrDefault returns the value for key, or def if unset.
func (c *Config) GetOrDefault(key Key, def string) string {
	if v, ok := c.values[key]; ok {
		return v
	}
	return def
}

// Insert sets key to value, overwriting any prior value.
func (c *Config) Insert(key Key, value string) {
	c.values[key] = value
}

// Connect splits CONNECT into its comma-separated locator list.
func (c *Config) Connect() []string {
	return splitCSV(c.GetOrDefault(KeyConnect, ""))
}

// Listen splits LISTEN into its comma-separated locator list.
func (c *Config) Listen() []string {
	return splitCSV(c.GetOrDefault(KeyListen, ""))
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// BindFlags registers the recognized keys as pflag flags on fs, for a CLI
// command that exposes a config file flag backed by a pflag set.
func BindFlags(fs *pflag.FlagSet) {
	fs.String(string(KeyMode), "client", "session mode: client, peer, or router (router rejected)")
	fs.String(string(KeyConnect), "", "comma-separated list of remote locators")
	fs.String(string(KeyListen), "", "comma-separated list of locators to bind")
	fs.String(string(KeyMulticastLocator), DefaultMulticastLocator, "scouting group locator")
	fs.String(string(KeyScoutingTimeout), "1000", "scouting timeout in milliseconds")
	fs.String(string(KeyScoutingWhat), "3", "scouting bitmask: 1=router 2=peer 4=client")
	fs.String(string(KeySessionZID), "", "override the local ZenohId (hex)")
	fs.String(string(KeyDiagAddr), DefaultAddr, "diagnostics HTTP listen address")
}

// DefaultAddr is the diagnostics HTTP listen address used when diag_addr
// is not set.
const DefaultAddr = ":7475"

// Load builds a Config from a viper instance, optionally seeded from a
// config file at path (TOML/YAML/JSON, whichever viper's file-type sniffing
// picks up) plus environment variables prefixed ZENOH_.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("zenoh")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := New()
	for _, key := range []Key{
		KeyMode, KeyConnect, KeyListen, KeyMulticastLocator,
		KeyScoutingTimeout, KeyScoutingWhat, KeySessionZID, KeyDiagAddr,
	} {
		if val := v.GetString(string(key)); val != "" {
			cfg.Insert(key, val)
		}
	}
	if _, ok := cfg.Get(KeyMulticastLocator); !ok {
		cfg.Insert(KeyMulticastLocator, DefaultMulticastLocator)
	}

	return cfg, nil
}

// WatchReload installs a viper file-watch (backed transitively by
// fsnotify) that invokes onChange whenever the backing file changes.
// Hot-reload is opt-in; most deployments call Load once at startup.
func WatchReload(path string, onChange func(*Config)) error {
	if path == "" {
		return fmt.Errorf("config: cannot watch reload without a file path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg := New()
		for _, key := range []Key{
			KeyMode, KeyConnect, KeyListen, KeyMulticastLocator,
			KeyScoutingTimeout, KeyScoutingWhat, KeySessionZID, KeyDiagAddr,
		} {
			if val := v.GetString(string(key)); val != "" {
				cfg.Insert(key, val)
			}
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
