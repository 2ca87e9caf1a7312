// Package config loads every option in spec.md §6 from flags, environment
// variables, and an optional .env file, in the teacher's
// DefaultConfig()+Validate() style generalized onto spf13/viper +
// spf13/pflag + spf13/cobra + joho/godotenv.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/graphindexer/gossip-listener/internal/errs"
)

// IDValidation is the identity-validation policy enum from spec.md §6.
type IDValidation string

const (
	IDValidationNoCheck              IDValidation = "no-check"
	IDValidationValidAddress         IDValidation = "valid-address"
	IDValidationRegistered           IDValidation = "registered"
	IDValidationGraphNetworkAccount  IDValidation = "graph-network-account"
	IDValidationRegisteredIndexer    IDValidation = "registered-indexer"
	IDValidationIndexer              IDValidation = "indexer"
)

func parseIDValidation(s string) (IDValidation, error) {
	switch IDValidation(s) {
	case IDValidationNoCheck, IDValidationValidAddress, IDValidationRegistered,
		IDValidationGraphNetworkAccount, IDValidationRegisteredIndexer, IDValidationIndexer:
		return IDValidation(s), nil
	default:
		return "", fmt.Errorf("%w: unknown id_validation %q", errs.ErrConfig, s)
	}
}

// Config holds every option from spec.md §6.
type Config struct {
	DatabaseURL       string
	FilterProtocol    bool
	IndexerAddress    string
	PrivateKey        string
	Mnemonic          string
	RegistrySubgraph  string
	NetworkSubgraph   string
	GraphcastNetwork  string
	Topics            []string
	WakuHost          string
	WakuPort          int
	WakuNodeKey       string
	WakuAddr          string
	BootNodeAddresses []string
	WakuLogLevel      string
	Discv5Enrs        []string
	Discv5Port        int
	LogLevel          string
	SlackWebhook      string
	DiscordWebhook    string
	TelegramToken     string
	TelegramChatID    string
	MetricsHost       string
	MetricsPort       int
	ServerHost        string
	ServerPort        int
	LogFormat         string
	RadioName         string
	MaxStorage        int64
	IDValidationRaw   string
	IDValidation      IDValidation
	RetentionMinutes  int64
}

// DefaultConfig returns the defaults named in spec.md §6.
func DefaultConfig() Config {
	return Config{
		GraphcastNetwork: "testnet",
		LogLevel:         "info",
		MetricsHost:      "0.0.0.0",
		ServerHost:       "0.0.0.0",
		LogFormat:        "pretty",
		RadioName:        "subgraph-radio",
		IDValidationRaw:  string(IDValidationValidAddress),
		RetentionMinutes: 1440,
	}
}

// BindFlags registers every option as a pflag, matching cobra's
// flags-first configuration convention.
func BindFlags(flags *pflag.FlagSet) {
	d := DefaultConfig()
	flags.String("database-url", d.DatabaseURL, "Postgres connection string (required)")
	flags.Bool("filter-protocol", d.FilterProtocol, "enable content-topic filtering")
	flags.String("indexer-address", d.IndexerAddress, "on-chain indexer address")
	flags.String("private-key", d.PrivateKey, "operator private key (mutually exclusive with mnemonic)")
	flags.String("mnemonic", d.Mnemonic, "operator mnemonic (mutually exclusive with private-key)")
	flags.String("registry-subgraph", d.RegistrySubgraph, "registry subgraph URL")
	flags.String("network-subgraph", d.NetworkSubgraph, "network subgraph URL")
	flags.String("graphcast-network", d.GraphcastNetwork, "graphcast network")
	flags.StringSlice("topics", nil, "comma-separated content topics")
	flags.String("waku-host", d.WakuHost, "gossip substrate listen host")
	flags.Int("waku-port", d.WakuPort, "gossip substrate listen port")
	flags.String("waku-node-key", d.WakuNodeKey, "gossip substrate node key")
	flags.String("waku-addr", d.WakuAddr, "gossip substrate advertised address")
	flags.StringSlice("boot-node-addresses", nil, "comma-separated boot node multiaddrs")
	flags.String("waku-log-level", d.WakuLogLevel, "gossip substrate log level")
	flags.StringSlice("discv5-enrs", nil, "comma-separated discv5 ENRs")
	flags.Int("discv5-port", d.Discv5Port, "discv5 UDP port")
	flags.String("log-level", d.LogLevel, "log level")
	flags.String("slack-webhook", d.SlackWebhook, "Slack incoming webhook URL")
	flags.String("discord-webhook", d.DiscordWebhook, "Discord webhook URL")
	flags.String("telegram-token", d.TelegramToken, "Telegram bot token")
	flags.String("telegram-chat-id", d.TelegramChatID, "Telegram chat id")
	flags.String("metrics-host", d.MetricsHost, "metrics bind host")
	flags.Int("metrics-port", d.MetricsPort, "metrics bind port")
	flags.String("server-host", d.ServerHost, "query API bind host")
	flags.Int("server-port", d.ServerPort, "query API bind port")
	flags.String("log-format", d.LogFormat, "log format (pretty, json)")
	flags.String("radio-name", d.RadioName, "notifier radio name prefix")
	flags.Int64("max-storage", d.MaxStorage, "size cap on the messages table (0 disables)")
	flags.String("id-validation", d.IDValidationRaw, "identity validation policy")
	flags.Int64("retention", d.RetentionMinutes, "retention window in minutes")
}

// Load reads an optional .env file, binds environment variables and CLI
// flags into viper, and returns the resulting Config. Flags take
// precedence over environment, which takes precedence over defaults.
func Load(flags *pflag.FlagSet) (Config, error) {
	_ = godotenv.Load() // optional; absence is not an error

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return Config{}, fmt.Errorf("%w: bind flags: %v", errs.ErrConfig, err)
	}

	cfg := DefaultConfig()
	cfg.DatabaseURL = v.GetString("database-url")
	cfg.FilterProtocol = v.GetBool("filter-protocol")
	cfg.IndexerAddress = v.GetString("indexer-address")
	cfg.PrivateKey = v.GetString("private-key")
	cfg.Mnemonic = v.GetString("mnemonic")
	cfg.RegistrySubgraph = v.GetString("registry-subgraph")
	cfg.NetworkSubgraph = v.GetString("network-subgraph")
	if s := v.GetString("graphcast-network"); s != "" {
		cfg.GraphcastNetwork = s
	}
	cfg.Topics = v.GetStringSlice("topics")
	cfg.WakuHost = v.GetString("waku-host")
	cfg.WakuPort = v.GetInt("waku-port")
	cfg.WakuNodeKey = v.GetString("waku-node-key")
	cfg.WakuAddr = v.GetString("waku-addr")
	cfg.BootNodeAddresses = v.GetStringSlice("boot-node-addresses")
	cfg.WakuLogLevel = v.GetString("waku-log-level")
	cfg.Discv5Enrs = v.GetStringSlice("discv5-enrs")
	cfg.Discv5Port = v.GetInt("discv5-port")
	if s := v.GetString("log-level"); s != "" {
		cfg.LogLevel = s
	}
	cfg.SlackWebhook = v.GetString("slack-webhook")
	cfg.DiscordWebhook = v.GetString("discord-webhook")
	cfg.TelegramToken = v.GetString("telegram-token")
	cfg.TelegramChatID = v.GetString("telegram-chat-id")
	if s := v.GetString("metrics-host"); s != "" {
		cfg.MetricsHost = s
	}
	cfg.MetricsPort = v.GetInt("metrics-port")
	if s := v.GetString("server-host"); s != "" {
		cfg.ServerHost = s
	}
	cfg.ServerPort = v.GetInt("server-port")
	if s := v.GetString("log-format"); s != "" {
		cfg.LogFormat = s
	}
	if s := v.GetString("radio-name"); s != "" {
		cfg.RadioName = s
	}
	cfg.MaxStorage = v.GetInt64("max-storage")
	if s := v.GetString("id-validation"); s != "" {
		cfg.IDValidationRaw = s
	}
	if n := v.GetInt64("retention"); n != 0 {
		cfg.RetentionMinutes = n
	}

	idv, err := parseIDValidation(cfg.IDValidationRaw)
	if err != nil {
		return Config{}, err
	}
	cfg.IDValidation = idv

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reproduces the original's mutually-exclusive private_key/
// mnemonic check (config.rs) plus the structural requirements of spec.md §6.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: database_url is required", errs.ErrConfig)
	}
	if c.PrivateKey == "" && c.Mnemonic == "" {
		return fmt.Errorf("%w: one of private_key or mnemonic is required", errs.ErrConfig)
	}
	if c.PrivateKey != "" && c.Mnemonic != "" {
		return fmt.Errorf("%w: private_key and mnemonic are mutually exclusive", errs.ErrConfig)
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("%w: invalid metrics_port %d", errs.ErrConfig, c.MetricsPort)
	}
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fmt.Errorf("%w: invalid server_port %d", errs.ErrConfig, c.ServerPort)
	}
	switch c.LogFormat {
	case "pretty", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", errs.ErrConfig, c.LogFormat)
	}
	if _, err := parseIDValidation(c.IDValidationRaw); err != nil {
		return err
	}
	return nil
}
