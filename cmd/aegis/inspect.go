package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"aegis/internal/aegis"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// containerInfo is the printable view of a container.
type containerInfo struct {
	PublicKey   string `json:"public_key" yaml:"public_key"`
	Metadata    string `json:"metadata" yaml:"metadata"`
	Signature   string `json:"signature" yaml:"signature"`
	Digest      string `json:"digest" yaml:"digest"`
	ImageSize   int    `json:"image_size" yaml:"image_size"`
	EncodedSize int64  `json:"encoded_size" yaml:"encoded_size"`
}

func newContainerInfo(c aegis.Container) containerInfo {
	digest := aegis.Digest(c.Metadata, c.ImageData)

	return containerInfo{
		PublicKey:   hex.EncodeToString(c.PublicKey),
		Metadata:    c.Metadata,
		Signature:   hex.EncodeToString(c.Signature),
		Digest:      hex.EncodeToString(digest[:]),
		ImageSize:   len(c.ImageData),
		EncodedSize: c.EncodedLen(),
	}
}

func newInspectCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "inspect <container>",
		Short: "Print the fields of a container without verifying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(cmd, args[0], false)
			if err != nil {
				return err
			}

			return printInfo(cmd.OutOrStdout(), newContainerInfo(c), output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format: text, json or yaml")

	return cmd
}

func printInfo(w io.Writer, info containerInfo, format string) error {
	switch format {
	case outputText:
		_, err := fmt.Fprintf(w, "public_key: %s\nmetadata: %s\nsignature: %s\ndigest: %s\nimage_size: %d\nencoded_size: %d\n",
			info.PublicKey,
			info.Metadata,
			info.Signature,
			info.Digest,
			info.ImageSize,
			info.EncodedSize)
		return err
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(info)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
