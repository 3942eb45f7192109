package main

import (
	"time"

	"github.com/marmos91/wormfs/pkg/metadata"
	"github.com/spf13/cobra"
)

var chmodCmd = &cobra.Command{
	Use:   "chmod <share> <path> <mode>",
	Short: "Change a file's permission bits in the store",
	Long: `Chmod updates the permission bits directly in the share's metadata store,
bypassing the open pipeline. Like any attribute change it updates the file's
change time, which restarts the WORM grace period.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := parseMode(args[2])
		if err != nil {
			return err
		}
		share, err := reg.GetShare(args[0])
		if err != nil {
			return err
		}
		policy, err := sharePolicy(share)
		if err != nil {
			return err
		}
		store, err := reg.GetMetadataStoreForShare(share.Name)
		if err != nil {
			return err
		}

		attr, err := store.SetAttr(cmd.Context(), share.Name, args[1], &metadata.SetAttrs{Mode: metadata.Uint32Ptr(mode)})
		if err != nil {
			return err
		}
		return printStat(cmd.OutOrStdout(), newStatView(args[1], attr, policy, time.Now()))
	},
}
