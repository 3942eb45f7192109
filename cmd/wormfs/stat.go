package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/marmos91/wormfs/pkg/registry"
	"github.com/marmos91/wormfs/pkg/vfs"
	"github.com/marmos91/wormfs/pkg/vfs/worm"
	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat <share> <path>",
	Short: "Show a file's attributes and WORM protection",
	Long: `Stat reads a file's attributes from the share's metadata store without
opening it, and reports its age against the share's grace period.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		attr, err := store.GetAttr(cmd.Context(), share.Name, args[1])
		if err != nil {
			return err
		}
		return printStat(cmd.OutOrStdout(), newStatView(args[1], attr, policy, time.Now()))
	},
}

// sharePolicy returns the WORM policy connections to share run under, or
// nil when the share does not enforce one.
func sharePolicy(share *registry.Share) (*worm.PolicyConfig, error) {
	if share.Kind != vfs.KindDisk || !slices.Contains(share.Layers, "worm") {
		return nil, nil
	}
	policy, err := worm.NewPolicyConfig(share.Options)
	if err != nil {
		return nil, fmt.Errorf("share %s: %w", share.Name, err)
	}
	return policy, nil
}
