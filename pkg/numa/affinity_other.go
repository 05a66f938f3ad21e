//go:build !linux

package numa

import "errors"

func pinToCPUs(cpus []int) error {
	if len(cpus) == 0 {
		return nil
	}
	return errors.New("thread affinity is only supported on linux")
}
