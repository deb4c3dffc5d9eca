package cli

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/beatlink/internal/config"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate and print the effective config",
		Long: `Load a TOML config file over the defaults, validate it against the
config schema and print the result. Without --config, prints the defaults.

Examples:
  linkhut config
  linkhut config --config linkhut.toml
  linkhut config --config linkhut.toml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(rootOpts, path, cmd)
		},
	}

	cmd.Flags().StringVarP(&path, "config", "c", "", "path to TOML config file")

	return cmd
}

func runConfig(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts)

	cfg := config.Default()
	if path != "" {
		formatter.VerboseLog("loading %s", path)
		loaded, err := config.Load(path)
		if err != nil {
			var verr *config.ValidationError
			if errors.As(err, &verr) {
				_ = formatter.Error(CodeConfigInvalid, "invalid config", verr.Problems)
				return WrapExitError(ExitFailure, "invalid config", err)
			}
			_ = formatter.Error(CodeConfigLoad, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	return formatter.Render(cfg, nil, func(w io.Writer) error {
		data, err := config.Marshal(cfg)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to encode config", err)
		}
		_, err = w.Write(data)
		return err
	})
}
