package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "ROASTCTL"

type cliOptions struct {
	server     string
	token      string
	configFile string
	verbose    bool
	logger     *slog.Logger
	v          *viper.Viper
}

func newRootCommand() *cobra.Command {
	opts := cliOptions{
		server: "http://localhost:4000",
		v:      viper.New(),
	}

	root := &cobra.Command{
		Use:           "roastctl",
		Short:         "Developer CLI for the roastmarket realtime API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd.Flags())
		},
	}

	root.PersistentFlags().StringVar(&opts.server, "server", opts.server, "API base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", "", "access token (env ROASTCTL_TOKEN)")
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "optional YAML file with server/token/jwt_secret")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		newTokenCmd(&opts),
		newWatchCmd(&opts),
	)
	return root
}

// load resolves settings with precedence flag > env > config file > default.
func (o *cliOptions) load(flags *pflag.FlagSet) error {
	v := o.v
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	if o.configFile != "" {
		v.SetConfigFile(o.configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", o.configFile, err)
		}
	}

	o.server = strings.TrimRight(v.GetString("server"), "/")
	o.token = v.GetString("token")

	level := slog.LevelInfo
	if v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// wsURL maps the API base URL to the websocket endpoint.
func (o *cliOptions) wsURL() (string, error) {
	u, err := url.Parse(o.server)
	if err != nil {
		return "", fmt.Errorf("invalid --server: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("--server must be an http(s) or ws(s) URL")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
