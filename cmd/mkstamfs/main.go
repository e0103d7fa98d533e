// Command mkstamfs formats a file or block device as an empty STAMFS
// filesystem.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/KarpelesLab/stamfs"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkstamfs <path>",
		Short: "Format a file or block device as an empty STAMFS filesystem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force := viper.GetBool("force")
			path := args[0]

			if err := stamfs.FormatFile(path, force); err != nil {
				logrus.WithError(err).Error("mkstamfs: format failed")
				return err
			}
			logrus.WithField("path", path).Info("mkstamfs: formatted")
			return nil
		},
	}

	cmd.Flags().BoolP("force", "f", false, "permit formatting a regular file, not just a block device")
	viper.BindPFlag("force", cmd.Flags().Lookup("force"))
	viper.SetEnvPrefix("STAMFS")
	viper.BindEnv("force")

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
