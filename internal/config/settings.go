package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Setting keys.
const (
	KeySender          = "sender"
	KeyCredentialsFile = "credentials_file"
	KeyTokenFile       = "token_file"
	KeyListsFile       = "lists_file"
	KeyTemplatesDir    = "templates_dir"
	KeyLogFile         = "log_file"
	KeyRedirectURL     = "redirect_url"
	KeyOpenBrowser     = "open_browser"
	KeyLogLevel        = "log.level"
	KeyLogFormat       = "log.format"
)

// EnvPrefix is prepended to environment variable names, e.g. MAILMERGE_SENDER.
const EnvPrefix = "MAILMERGE"

// Settings holds the runtime configuration of mailmerge.
type Settings struct {
	// Sender is the From address. Empty lets Gmail use the authorized account.
	Sender string `mapstructure:"sender"`

	// CredentialsFile is the OAuth client secrets file downloaded from the Google Cloud Console.
	CredentialsFile string `mapstructure:"credentials_file"`

	// TokenFile persists the authorized user credential between runs.
	TokenFile string `mapstructure:"token_file"`

	// ListsFile holds the recipient lists (JSON or YAML).
	ListsFile string `mapstructure:"lists_file"`

	// TemplatesDir is the directory templates are loaded from.
	TemplatesDir string `mapstructure:"templates_dir"`

	// LogFile is the append-only send log.
	LogFile string `mapstructure:"log_file"`

	// RedirectURL is the loopback address the OAuth provider redirects to.
	RedirectURL string `mapstructure:"redirect_url"`

	// OpenBrowser controls whether the authorization URL is opened automatically.
	OpenBrowser bool `mapstructure:"open_browser"`

	Log LogSettings `mapstructure:"log"`
}

// LogSettings configures structured logging.
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeySender, "")
	v.SetDefault(KeyCredentialsFile, "credentials.json")
	v.SetDefault(KeyTokenFile, "token.json")
	v.SetDefault(KeyListsFile, "email_lists.json")
	v.SetDefault(KeyTemplatesDir, "templates")
	v.SetDefault(KeyLogFile, "email_log.txt")
	v.SetDefault(KeyRedirectURL, "http://localhost:8080/")
	v.SetDefault(KeyOpenBrowser, true)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
}

// NewViper returns a viper instance with defaults, environment binding and
// config file search paths set up. An explicit configFile overrides the search.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("mailmerge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "mailmerge"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file (if any) into Settings.
// When no config file is found on the search path, defaults and environment
// apply. An explicitly named config file must exist.
func Load(v *viper.Viper) (*Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Validate checks that the settings are usable.
func (s *Settings) Validate() error {
	if s.CredentialsFile == "" {
		return fmt.Errorf("%s must not be empty", KeyCredentialsFile)
	}
	if s.TokenFile == "" {
		return fmt.Errorf("%s must not be empty", KeyTokenFile)
	}
	if s.ListsFile == "" {
		return fmt.Errorf("%s must not be empty", KeyListsFile)
	}
	if s.TemplatesDir == "" {
		return fmt.Errorf("%s must not be empty", KeyTemplatesDir)
	}
	if s.LogFile == "" {
		return fmt.Errorf("%s must not be empty", KeyLogFile)
	}
	if s.RedirectURL == "" {
		return fmt.Errorf("%s must not be empty", KeyRedirectURL)
	}
	return nil
}
