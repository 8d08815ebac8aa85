package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"aegis/internal/aegis"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <container>",
		Short: "Verify the signature of a sealed container",
		Long: `Verify decodes the container ("-" reads stdin) and checks its signature
against the public key it carries. A failed check exits with status 1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(cmd, args[0], true)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "OK")
			fmt.Fprintf(out, "metadata: %s\n", c.Metadata)
			fmt.Fprintf(out, "public_key: %s\n", hex.EncodeToString(c.PublicKey))
			fmt.Fprintf(out, "image_size: %d\n", len(c.ImageData))

			return nil
		},
	}
}

// openContainer decodes the container at path, or stdin for "-", and
// verifies it when verify is set.
func openContainer(cmd *cobra.Command, path string, verify bool) (aegis.Container, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return aegis.Container{}, fmt.Errorf("cannot open container: %w", err)
		}
		defer f.Close()
		r = f
	}

	r = bufio.NewReader(r)

	if verify {
		return aegis.Open(r)
	}
	return aegis.Read(r)
}
