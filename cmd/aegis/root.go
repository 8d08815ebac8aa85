package main

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"aegis/internal/config"
	"aegis/internal/keys"
	"aegis/internal/logging"
)

const (
	flagConfig    = "config"
	flagEnvFile   = "env-file"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
)

const longText = `aegis binds an image and a short metadata text into a single signed,
self-describing container that anyone can verify with the public key it carries.

The signing key is a P-256 private key, given as a hex scalar in AEGIS_PRIVATE_KEY
or as a hex or PEM file. Keys are never generated or stored by aegis.`

// New returns the root command with every sub-command attached.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aegis [sub-command]",
		Short: "Seal and verify signed image containers",
		Long:  longText,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	cmd.PersistentFlags().String(flagConfig, "", "path to a YAML config file (default: OS config directory)")
	cmd.PersistentFlags().String(flagEnvFile, ".env", "optional dotenv file loaded into the environment")
	registerLogFlags(cmd.PersistentFlags())

	cmd.AddCommand(newSealCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func registerLogFlags(fs *pflag.FlagSet) {
	fs.String(flagLogLevel, "", "log level: debug, info, warn, error (overrides config)")
	fs.String(flagLogFormat, "", "log format: json or terminal (overrides config)")
}

// environment is the configuration and logger a command runs with.
type environment struct {
	cfg config.Config
	log zerolog.Logger
}

// loadEnvironment resolves the config and sets up logging on stderr.
// Log flags win over the config file and the environment.
func loadEnvironment(cmd *cobra.Command) (environment, error) {
	flags := cmd.Flags()

	path, _ := flags.GetString(flagConfig)
	dotEnv, _ := flags.GetString(flagEnvFile)

	res, err := config.Load(path, dotEnv, func(cfg *config.Config) {
		if flags.Changed(flagLogLevel) {
			cfg.Log.Level, _ = flags.GetString(flagLogLevel)
		}
		if flags.Changed(flagLogFormat) {
			cfg.Log.Format, _ = flags.GetString(flagLogFormat)
		}
	})
	if err != nil {
		return environment{}, err
	}

	cfg := res.Config

	level, _ := logging.ParseLevel(cfg.Log.Level)
	log := logging.Setup(cmd.ErrOrStderr(), level, cfg.Log.Format, false)

	if res.File != "" {
		log.Debug().Str("path", res.File).Msg("config file loaded")
	}
	if res.DotEnvPath != "" {
		log.Debug().Str("path", res.DotEnvPath).Msg(".env file loaded")
	} else {
		log.Debug().Msg(".env file not found; relying on process environment")
	}

	return environment{cfg: cfg, log: log}, nil
}

// loadKey picks the signing key: an explicit key file first, then the hex
// key, then the configured key file. It returns nil when none is set.
func loadKey(cfg config.KeyConfig, keyFile string) (*ecdsa.PrivateKey, error) {
	switch {
	case keyFile != "":
		return keys.LoadFile(keyFile)
	case cfg.PrivateKey != "":
		k, err := keys.ParsePrivateKeyHex(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("AEGIS_PRIVATE_KEY: %w", err)
		}
		return k, nil
	case !cfg.Configured():
		return nil, nil
	default:
		return keys.LoadFile(cfg.PrivateKeyFile)
	}
}
