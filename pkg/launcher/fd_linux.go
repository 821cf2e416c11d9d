package launcher

import (
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// markExtraFDsCloseExec flags every descriptor above stderr close-on-exec.
// Closing them outright could destroy descriptors the runtime itself holds;
// for the launched command the effect is identical, they are gone at exec.
func markExtraFDsCloseExec() {
	ents, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		return
	}
	for _, e := range ents {
		fd, err := strconv.Atoi(e.Name())
		if err != nil || fd <= 2 {
			continue
		}
		// Best effort; the fd enumerating this directory vanishes on its
		// own and anything else that went away since the listing is fine.
		unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC)
	}
}
