package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/marmos91/wormfs/internal/logger"
	"github.com/marmos91/wormfs/pkg/vfs"
	"github.com/marmos91/wormfs/pkg/vfs/worm"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell <share>",
	Short: "Hold a connection to a share and run commands against it",
	Long: `Shell connects to a share once and reads commands from stdin until EOF,
"quit" or an interrupt. Handles stay open between commands. When metrics are
enabled the metrics server runs for the lifetime of the shell.

Commands:
  open <path> [access] [disposition] [mode]
  close <n>
  stat <path>
  handles
  help
  quit`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		share, err := reg.GetShare(args[0])
		if err != nil {
			return err
		}
		policy, err := sharePolicy(share)
		if err != nil {
			return err
		}

		if metrics.Server != nil {
			serverCtx, cancel := context.WithCancel(ctx)
			done := make(chan struct{})
			go func() {
				defer close(done)
				if err := metrics.Server.Start(serverCtx); err != nil {
					logger.Error("Metrics server error: %v", err)
				}
			}()
			defer func() {
				cancel()
				<-done
			}()
		}

		tree, err := reg.Connect(ctx, share.Name, identityUser, identityUID, identityGID)
		if err != nil {
			return err
		}
		defer func() {
			// ctx may be cancelled by now; disconnect on a fresh deadline
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tree.Disconnect(disconnectCtx); err != nil {
				logger.Warn("disconnect: %v", err)
			}
		}()

		logger.Info("Connected to %s as %s", share.Name, tree.Connection())
		return runShell(ctx, tree, policy, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	addIdentityFlags(shellCmd)
}

// shell is the state of one interactive session on a tree.
type shell struct {
	tree    *vfs.Tree
	policy  *worm.PolicyConfig
	out     io.Writer
	handles map[int]*vfs.FileHandle
	next    int
}

// runShell executes commands read from in until EOF, "quit" or ctx is
// done. Command failures are reported on out and do not end the session.
func runShell(ctx context.Context, tree *vfs.Tree, policy *worm.PolicyConfig, in io.Reader, out io.Writer) error {
	sh := &shell{
		tree:    tree,
		policy:  policy,
		out:     out,
		handles: make(map[int]*vfs.FileHandle),
		next:    1,
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			quit, err := sh.exec(ctx, line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// exec runs one command line. It reports true when the session should end.
func (sh *shell) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return false, nil
	}

	args := fields[1:]
	switch strings.ToLower(fields[0]) {
	case "open":
		return false, sh.open(ctx, args)
	case "close":
		return false, sh.close(ctx, args)
	case "stat":
		return false, sh.stat(ctx, args)
	case "handles":
		sh.list()
		return false, nil
	case "help", "?":
		fmt.Fprintln(sh.out, "open <path> [access] [disposition] [mode] | close <n> | stat <path> | handles | quit")
		return false, nil
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q (try help)", fields[0])
	}
}

func (sh *shell) open(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 4 {
		return errors.New("usage: open <path> [access] [disposition] [mode]")
	}

	access := vfs.FileGenericRead
	disposition := vfs.DispositionOpen
	mode := uint32(0)
	var err error

	if len(args) > 1 {
		if access, err = vfs.ParseAccessMask(args[1]); err != nil {
			return err
		}
	}
	if len(args) > 2 {
		if disposition, err = vfs.ParseDisposition(args[2]); err != nil {
			return err
		}
	}
	if len(args) > 3 {
		if mode, err = parseMode(args[3]); err != nil {
			return err
		}
	}

	fh, err := sh.tree.Open(ctx, args[0], access, disposition, mode)
	if err != nil {
		return err
	}

	n := sh.next
	sh.next++
	sh.handles[n] = fh
	fmt.Fprintf(sh.out, "[%d] ", n)
	return printHandle(sh.out, newHandleView(fh))
}

func (sh *shell) close(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: close <n>")
	}
	n, err := strconv.Atoi(strings.Trim(args[0], "[]"))
	if err != nil {
		return fmt.Errorf("invalid handle number %q", args[0])
	}
	fh, ok := sh.handles[n]
	if !ok {
		return fmt.Errorf("no handle [%d]", n)
	}

	delete(sh.handles, n)
	if err := sh.tree.Close(ctx, fh); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "closed [%d] %s\n", n, fh.Path)
	return nil
}

func (sh *shell) stat(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: stat <path>")
	}
	attr, err := sh.tree.Stat(ctx, args[0])
	if err != nil {
		return err
	}
	return printStat(sh.out, newStatView(args[0], attr, sh.policy, time.Now()))
}

func (sh *shell) list() {
	if len(sh.handles) == 0 {
		fmt.Fprintln(sh.out, "no open handles")
		return
	}

	ids := make([]int, 0, len(sh.handles))
	for n := range sh.handles {
		ids = append(ids, n)
	}
	sort.Ints(ids)

	for _, n := range ids {
		fh := sh.handles[n]
		fmt.Fprintf(sh.out, "[%d] %s access=%s opened=%s\n", n, fh.Path, fh.Access, fh.OpenedAt.Format(time.RFC3339))
	}
}
