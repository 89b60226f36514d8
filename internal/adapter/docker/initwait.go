package docker

import (
	"fmt"
	"math"
	"slices"

	"meshtopo/internal/cluster"
)

// initWaitScript blocks until the container has at least want interfaces
// besides lo and the management eth0, sleeps delay seconds, then runs "$@".
const initWaitScript = `want=%d
while [ "$(ls /sys/class/net | grep -cv -e '^lo$' -e '^eth0$')" -lt "$want" ]; do sleep 1; done
sleep %d
exec "$@"`

// entrypoint resolves the container entrypoint and cmd for spec. The image
// defaults fill in when the workload has no command of its own.
func entrypoint(spec cluster.WorkloadSpec, imageEntrypoint, imageCmd []string) ([]string, []string) {
	argv := slices.Concat(spec.Command, spec.Args)
	if len(spec.Command) == 0 {
		tail := imageCmd
		if len(spec.Args) > 0 {
			tail = spec.Args
		}
		argv = slices.Concat(imageEntrypoint, tail)
	}

	wait := spec.InitWait
	if wait.Interfaces <= 0 && wait.Delay <= 0 {
		return argv, nil
	}
	delay := int(math.Ceil(wait.Delay.Seconds()))
	script := fmt.Sprintf(initWaitScript, max(wait.Interfaces, 0), delay)
	return []string{"/bin/sh", "-c", script, "init-wait"}, argv
}
