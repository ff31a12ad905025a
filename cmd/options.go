package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/teemow/mailmerge/internal/config"
	"github.com/teemow/mailmerge/internal/google"
	"github.com/teemow/mailmerge/internal/instrumentation"
	"github.com/teemow/mailmerge/internal/logging"
)

// globalOptions are the persistent flags shared by all commands.
type globalOptions struct {
	configFile string
}

// flagBindings maps setting keys to the persistent flag that overrides them.
var flagBindings = map[string]string{
	config.KeySender:          "sender",
	config.KeyCredentialsFile: "credentials",
	config.KeyTokenFile:       "token",
	config.KeyListsFile:       "lists",
	config.KeyTemplatesDir:    "templates",
	config.KeyLogFile:         "log-file",
	config.KeyRedirectURL:     "redirect-url",
	config.KeyOpenBrowser:     "open-browser",
	config.KeyLogLevel:        "log-level",
	config.KeyLogFormat:       "log-format",
}

func (o *globalOptions) addFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.configFile, "config", "", "Config file (default: mailmerge.yaml in the working directory or user config directory)")
	f.String("sender", "", "From address (default: the authorized Gmail account). Can also use MAILMERGE_SENDER env var.")
	f.String("credentials", "credentials.json", "OAuth client secrets file from the Google Cloud Console")
	f.String("token", "token.json", "File the authorized credential is stored in")
	f.String("lists", "email_lists.json", "Recipient lists file (JSON or YAML)")
	f.String("templates", "templates", "Directory templates are loaded from")
	f.String("log-file", "email_log.txt", "Append-only log of delivered messages")
	f.String("redirect-url", "http://localhost:8080/", "OAuth redirect URL served on the loopback interface (port 0 picks a free port)")
	f.Bool("open-browser", true, "Open the authorization URL in the default browser")
	f.String("log-level", "info", "Log level: debug, info, warn, error")
	f.String("log-format", "text", "Log format: text or json")
}

// loadSettings resolves settings from flags, environment and config file.
func (o *globalOptions) loadSettings(flags *pflag.FlagSet) (*config.Settings, error) {
	v := config.NewViper(o.configFile)
	for key, name := range flagBindings {
		if flag := flags.Lookup(name); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}
	return config.Load(v)
}

// session carries what every command needs once settings are loaded.
type session struct {
	settings *config.Settings
	logger   *slog.Logger
	instr    instrumentation.Config
	provider *instrumentation.Provider
}

func (o *globalOptions) setup(ctx context.Context, cmd *cobra.Command) (*session, error) {
	settings, err := o.loadSettings(cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger := logging.New(cmd.ErrOrStderr(), logging.Options{
		Level:  settings.Log.Level,
		Format: settings.Log.Format,
		Prefix: "mailmerge",
	})
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if err := instrConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instrumentation config: %w", err)
	}
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	return &session{
		settings: settings,
		logger:   logger,
		instr:    instrConfig,
		provider: provider,
	}, nil
}

// close flushes instrumentation. Errors are only logged so they never mask
// the command's own result.
func (r *session) close(ctx context.Context) {
	if err := r.provider.Shutdown(ctx); err != nil {
		r.logger.Warn("error during instrumentation shutdown", logging.Err(err))
	}
}

// authorizer builds the OAuth authorizer from the configured client secrets.
func (r *session) authorizer(cmd *cobra.Command) (*google.Authorizer, error) {
	conf, err := google.ConfigFromFile(r.settings.CredentialsFile, r.settings.RedirectURL)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w (download an OAuth client for a desktop or web app from the Google Cloud Console and add %s as an authorized redirect URI)", err, r.settings.RedirectURL)
		}
		return nil, err
	}

	browser := google.OpenBrowser
	if !r.settings.OpenBrowser {
		browser = nil
	}

	return google.NewAuthorizer(conf,
		google.NewFileStore(r.settings.TokenFile, r.logger),
		google.WithOutput(cmd.OutOrStdout()),
		google.WithBrowser(browser),
		google.WithLogger(r.logger),
		google.WithMetrics(r.provider.Metrics()),
	), nil
}
