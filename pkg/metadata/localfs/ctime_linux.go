//go:build linux || openbsd

package localfs

import (
	"syscall"
	"time"
)

func statFromSys(sys any) (sysStat, bool) {
	st, ok := sys.(*syscall.Stat_t)
	if !ok || st == nil {
		return sysStat{}, false
	}
	return sysStat{
		atime: time.Unix(int64(st.Atim.Sec), int64(st.Atim.Nsec)),
		ctime: time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec)),
		uid:   st.Uid,
		gid:   st.Gid,
	}, true
}
