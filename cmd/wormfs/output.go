package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/marmos91/wormfs/pkg/metadata"
	"github.com/marmos91/wormfs/pkg/vfs"
	"github.com/marmos91/wormfs/pkg/vfs/worm"
	"github.com/spf13/cobra"
)

// identity flags shared by commands that connect to a share
var (
	identityUser string
	identityUID  uint32
	identityGID  uint32
)

// addIdentityFlags registers --user, --uid and --gid on cmd, defaulting to
// the identity of the current process.
func addIdentityFlags(cmd *cobra.Command) {
	user := os.Getenv("USER")
	if user == "" {
		user = "nobody"
	}
	cmd.Flags().StringVar(&identityUser, "user", user, "user name for the connection")
	cmd.Flags().Uint32Var(&identityUID, "uid", uint32(os.Getuid()), "uid for the connection")
	cmd.Flags().Uint32Var(&identityGID, "gid", uint32(os.Getgid()), "gid for the connection")
}

// parseMode parses octal permission bits, rejecting anything above 07777.
func parseMode(s string) (uint32, error) {
	mode, err := strconv.ParseUint(s, 8, 32)
	if err != nil || mode > 0o7777 {
		return 0, fmt.Errorf("invalid mode %q: want octal such as 0644", s)
	}
	return uint32(mode), nil
}

// statView is the printable form of a file's attributes and protection.
type statView struct {
	Path        string  `json:"path"`
	Type        string  `json:"type"`
	Mode        string  `json:"mode"`
	UID         uint32  `json:"uid"`
	GID         uint32  `json:"gid"`
	Size        uint64  `json:"size"`
	Mtime       string  `json:"mtime"`
	Ctime       string  `json:"ctime"`
	AgeSeconds  float64 `json:"age_seconds"`
	GracePeriod float64 `json:"grace_period_seconds,omitempty"`
	Protected   bool    `json:"protected"`
}

func newStatView(path string, attr *metadata.FileAttr, policy *worm.PolicyConfig, now time.Time) statView {
	v := statView{
		Path:  path,
		Type:  attr.Type.String(),
		Mode:  fmt.Sprintf("%04o", attr.Mode),
		UID:   attr.UID,
		GID:   attr.GID,
		Size:  attr.Size,
		Mtime: attr.Mtime.Format(time.RFC3339),
		Ctime: attr.Ctime.Format(time.RFC3339),
	}
	if policy != nil {
		v.AgeSeconds = policy.Age(attr, now).Seconds()
		v.GracePeriod = policy.GracePeriod().Seconds()
		v.Protected = policy.IsProtected(attr, now)
	}
	return v
}

func printStat(w io.Writer, v statView) error {
	if jsonOutput {
		return printJSON(w, v)
	}
	fmt.Fprintf(w, "%s\n", v.Path)
	fmt.Fprintf(w, "  type:  %s  mode: %s  uid: %d  gid: %d  size: %d\n", v.Type, v.Mode, v.UID, v.GID, v.Size)
	fmt.Fprintf(w, "  mtime: %s\n", v.Mtime)
	fmt.Fprintf(w, "  ctime: %s\n", v.Ctime)
	if v.GracePeriod > 0 || v.Protected {
		fmt.Fprintf(w, "  age:   %.0fs (grace %.0fs) protected: %v\n", v.AgeSeconds, v.GracePeriod, v.Protected)
	}
	return nil
}

type handleView struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Action string `json:"action"`
	Access string `json:"access"`
}

func newHandleView(fh *vfs.FileHandle) handleView {
	return handleView{ID: fh.ID.String(), Path: fh.Path, Action: fh.Action.String(), Access: fh.Access.String()}
}

func printHandle(w io.Writer, v handleView) error {
	if jsonOutput {
		return printJSON(w, v)
	}
	fmt.Fprintf(w, "%s %s access=%s handle=%s\n", v.Action, v.Path, v.Access, v.ID)
	return nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
