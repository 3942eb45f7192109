package main

import (
	"github.com/marmos91/wormfs/internal/logger"
	"github.com/marmos91/wormfs/pkg/vfs"
	"github.com/spf13/cobra"
)

var touchMode string

// touchCmd creates a file with DispositionCreate, so an existing file is
// reported as an error rather than reopened.
var touchCmd = &cobra.Command{
	Use:   "touch <share> <path>",
	Short: "Create a file through a share's pipeline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := parseMode(touchMode)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		tree, err := reg.Connect(ctx, args[0], identityUser, identityUID, identityGID)
		if err != nil {
			return err
		}
		defer func() {
			if err := tree.Disconnect(ctx); err != nil {
				logger.Warn("disconnect: %v", err)
			}
		}()

		fh, err := tree.Open(ctx, args[1], vfs.FileGenericRead|vfs.FileGenericWrite, vfs.DispositionCreate, mode)
		if err != nil {
			return err
		}
		if err := printHandle(cmd.OutOrStdout(), newHandleView(fh)); err != nil {
			return err
		}
		return tree.Close(ctx, fh)
	},
}

func init() {
	touchCmd.Flags().StringVarP(&touchMode, "mode", "m", "0644", "permission bits (octal)")
	addIdentityFlags(touchCmd)
}
