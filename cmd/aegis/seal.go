package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aegis/internal/aegis"
	"aegis/internal/config"
	"aegis/internal/files"
)

const defaultSealedName = "sealed.aegis"

func newSealCmd() *cobra.Command {
	var (
		metadata string
		keyFile  string
		output   string
		maxSize  int64
	)

	cmd := &cobra.Command{
		Use:   "seal [image]",
		Short: "Seal an image and metadata into a signed container",
		Long: `Seal reads the image from the given path or from stdin, signs it together
with the metadata text and writes the container to --output ("-" for stdout).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(cmd)
			if err != nil {
				return err
			}

			key, err := loadKey(env.cfg.Key, keyFile)
			if err != nil {
				return err
			}
			if key == nil {
				return errors.New("no signing key configured (set AEGIS_PRIVATE_KEY or use --key-file)")
			}

			var path string
			if len(args) == 1 {
				path = args[0]
			}

			stdin, _ := cmd.InOrStdin().(*os.File)

			payload, source, err := files.ReadInput(path, stdin, maxSize)
			if err != nil {
				return err
			}

			c, err := aegis.Seal(metadata, payload, key)
			if err != nil {
				return err
			}

			env.log.Debug().
				Str("source", source.String()).
				Int("image_size", len(payload)).
				Int64("container_size", c.EncodedLen()).
				Msg("sealed")

			if output == "-" {
				return aegis.Write(cmd.OutOrStdout(), c)
			}

			if err := files.WriteAtomic(output, aegis.Marshal(c), 0o644); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), output)

			return nil
		},
	}

	cmd.Flags().StringVarP(&metadata, "metadata", "m", "", "metadata text to seal with the image (required, may be empty)")
	cmd.Flags().StringVar(&keyFile, "key-file", "", "file holding the P-256 private key as hex or PEM")
	cmd.Flags().StringVarP(&output, "output", "o", defaultSealedName, `output path, "-" for stdout`)
	cmd.Flags().Int64Var(&maxSize, "max-size", config.DefaultBodyLimit, "maximum image size in bytes")
	_ = cmd.MarkFlagRequired("metadata")

	return cmd
}
