package main

import (
	"github.com/marmos91/wormfs/internal/logger"
	"github.com/marmos91/wormfs/pkg/vfs"
	"github.com/spf13/cobra"
)

var (
	openAccess      string
	openDisposition string
	openMode        string
)

var openCmd = &cobra.Command{
	Use:   "open <share> <path>",
	Short: "Run one open/create request through a share's pipeline",
	Long: `Open sends a single open/create request through the share's layers,
reports the handle it produced and closes it again. A denied request exits
non-zero with the status returned by the pipeline.

Examples:
  wormfs open /archive /reports/q3.pdf
  wormfs open /archive /reports/q3.pdf --access write_data
  wormfs open /archive /new.txt --disposition create --mode 0600`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		access, err := vfs.ParseAccessMask(openAccess)
		if err != nil {
			return err
		}
		disposition, err := vfs.ParseDisposition(openDisposition)
		if err != nil {
			return err
		}
		mode, err := parseMode(openMode)
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

		fh, err := tree.Open(ctx, args[1], access, disposition, mode)
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
	openCmd.Flags().StringVarP(&openAccess, "access", "a", "read", "requested access rights (e.g. read, write, read_data,delete, 0x2)")
	openCmd.Flags().StringVarP(&openDisposition, "disposition", "d", "open", "supersede, open, create, open_if, overwrite or overwrite_if")
	openCmd.Flags().StringVarP(&openMode, "mode", "m", "0644", "permission bits for a created file (octal)")
	addIdentityFlags(openCmd)
}
