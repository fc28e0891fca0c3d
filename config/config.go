// Package config loads the auth service settings from the environment,
// optional .env files and an optional config file.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	auth "github.com/goliatone/go-logistics-auth"
)

// EnvPrefix prefixes every environment variable, AUTH_TOKEN_VALIDITYSECONDS
// maps to token.validitySeconds.
const EnvPrefix = "AUTH"

// Config holds application configuration
type Config struct {
	Debug         bool
	Server        ServerConfig
	Token         TokenConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	ReferenceData ReferenceDataConfig
	Bootstrap     BootstrapConfig
}

type ServerConfig struct {
	Address string
}

type TokenConfig struct {
	ValiditySeconds        int
	RefreshValiditySeconds int
	SigningKey             string
	Issuer                 string
}

type DatabaseConfig struct {
	Driver string
	DSN    string
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

type ReferenceDataConfig struct {
	URL     string
	Timeout time.Duration
}

// BootstrapConfig seeds a client and an administrator on start up. Empty
// values skip seeding.
type BootstrapConfig struct {
	ClientID      string
	ClientSecret  string
	AdminUsername string
	AdminPassword string
}

var _ auth.Config = (*Config)(nil)

// Options tweak where Load looks for settings
type Options struct {
	EnvFiles   []string
	ConfigFile string
}

// Load reads the configuration. Missing .env files are ignored.
func Load(opts Options) (*Config, error) {
	for _, file := range opts.EnvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("token.validitySeconds", 1800)
	v.SetDefault("token.refreshValiditySeconds", auth.DefaultRefreshTokenValiditySeconds)
	v.SetDefault("token.signingKey", "")
	v.SetDefault("token.issuer", "logistics-auth")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file::memory:?cache=shared")
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "auth:")
	v.SetDefault("referencedata.url", "http://localhost:8081")
	v.SetDefault("referencedata.timeout", 10*time.Second)
	v.SetDefault("bootstrap.clientId", "")
	v.SetDefault("bootstrap.clientSecret", "")
	v.SetDefault("bootstrap.adminUsername", "")
	v.SetDefault("bootstrap.adminPassword", "")
}

// FromViper builds a Config from v without validating it
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Debug: v.GetBool("debug"),
		Server: ServerConfig{
			Address: v.GetString("server.address"),
		},
		Token: TokenConfig{
			ValiditySeconds:        v.GetInt("token.validitySeconds"),
			RefreshValiditySeconds: v.GetInt("token.refreshValiditySeconds"),
			SigningKey:             v.GetString("token.signingKey"),
			Issuer:                 v.GetString("token.issuer"),
		},
		Database: DatabaseConfig{
			Driver: v.GetString("database.driver"),
			DSN:    v.GetString("database.dsn"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Prefix:   v.GetString("redis.prefix"),
		},
		ReferenceData: ReferenceDataConfig{
			URL:     v.GetString("referencedata.url"),
			Timeout: v.GetDuration("referencedata.timeout"),
		},
		Bootstrap: BootstrapConfig{
			ClientID:      v.GetString("bootstrap.clientId"),
			ClientSecret:  v.GetString("bootstrap.clientSecret"),
			AdminUsername: v.GetString("bootstrap.adminUsername"),
			AdminPassword: v.GetString("bootstrap.adminPassword"),
		},
	}
}

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Token,
		validation.Field(&c.Token.SigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.Token.ValiditySeconds, validation.Required, validation.Min(1)),
	); err != nil {
		return err
	}

	return validation.ValidateStruct(&c.Database,
		validation.Field(&c.Database.Driver, validation.Required, validation.In("sqlite", "postgres")),
		validation.Field(&c.Database.DSN, validation.Required),
	)
}

func (c *Config) GetSigningKey() string {
	return c.Token.SigningKey
}

func (c *Config) GetIssuer() string {
	return c.Token.Issuer
}

func (c *Config) GetTokenValiditySeconds() int {
	return c.Token.ValiditySeconds
}

func (c *Config) GetRefreshTokenValiditySeconds() int {
	return c.Token.RefreshValiditySeconds
}
