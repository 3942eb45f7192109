//go:build !linux && !openbsd && !darwin && !freebsd && !netbsd

package localfs

// Without platform stat data the change time falls back to ModTime.
func statFromSys(any) (sysStat, bool) {
	return sysStat{}, false
}
