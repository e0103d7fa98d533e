// Command stamfs2txt prints a human-readable dump of a STAMFS disk image.
// It does not change the image's contents, but unmounting writes the
// inode-index and free-list blocks back, unchanged, to the device.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/KarpelesLab/stamfs"
)

func dumpTree(m *stamfs.Mount, dir *stamfs.Inode, parentIno uint32, path string) error {
	entries, err := dir.Readdir(parentIno)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		full := path + "/" + e.Name
		child, err := m.ReadInode(e.Ino)
		if err != nil {
			return err
		}
		fmt.Printf("%-6d %-5s %6d  %s\n", child.Ino, e.Type, child.Size, full)

		if e.Type == stamfs.TypeDir {
			if err := dumpTree(m, child, dir.Ino, full); err != nil {
				return err
			}
		}
	}
	return nil
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stamfs2txt <path>",
		Short: "Dump a STAMFS disk image as human-readable text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			dev, closeFn, err := stamfs.OpenImage(path)
			if err != nil {
				logrus.WithError(err).Error("stamfs2txt: open failed")
				return err
			}
			defer closeFn()

			m, err := stamfs.MountImage(dev)
			if err != nil {
				logrus.WithError(err).Error("stamfs2txt: mount failed")
				return err
			}
			defer m.PutSuper()

			sf := m.Statfs()
			fmt.Printf("magic=%#x blocks=%d free_blocks=%d inodes=%d free_inodes=%d\n",
				sf.Type, sf.Blocks, sf.BlocksFree, sf.Files, sf.FilesFree)

			if !viper.GetBool("all") {
				return nil
			}

			root, err := m.ReadInode(stamfs.RootInodeNum)
			if err != nil {
				return err
			}
			fmt.Printf("%-6d %-5s %6d  /\n", root.Ino, stamfs.TypeDir, root.Size)
			return dumpTree(m, root, root.Ino, "")
		},
	}

	cmd.Flags().BoolP("force", "f", false, "unused, kept for CLI-surface parity with mkstamfs")
	cmd.Flags().Bool("all", false, "recursively dump the whole directory tree")
	viper.BindPFlag("force", cmd.Flags().Lookup("force"))
	viper.BindPFlag("all", cmd.Flags().Lookup("all"))

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
