//go:build darwin || freebsd || netbsd

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
		atime: time.Unix(int64(st.Atimespec.Sec), int64(st.Atimespec.Nsec)),
		ctime: time.Unix(int64(st.Ctimespec.Sec), int64(st.Ctimespec.Nsec)),
		uid:   st.Uid,
		gid:   st.Gid,
	}, true
}
