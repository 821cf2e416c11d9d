package namespace

import (
	"fmt"
	"strconv"
)

// HandlePath returns the /proc path of the namespace handle of the given
// kind held by pid. The pid is validated so the path is never built from
// untrusted non-numeric input.
func HandlePath(pid int, kind Kind) (string, error) {
	if pid <= 0 {
		return "", fmt.Errorf("namespace: invalid pid %d for %s handle", pid, kind)
	}
	return "/proc/" + strconv.Itoa(pid) + "/ns/" + string(kind), nil
}
