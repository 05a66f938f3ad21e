//go:build linux

package numa

import "golang.org/x/sys/unix"

// pinToCPUs binds the calling OS thread to cpus.
func pinToCPUs(cpus []int) error {
	if len(cpus) == 0 {
		return nil
	}
	var set unix.CPUSet
	set.Zero()
	for _, c := range cpus {
		set.Set(c)
	}
	return unix.SchedSetaffinity(0, &set)
}
