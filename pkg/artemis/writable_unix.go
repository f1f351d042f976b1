//go:build unix

package artemis

import "golang.org/x/sys/unix"

func dirWritable(dir string) bool {
	return unix.Access(dir, unix.W_OK|unix.X_OK) == nil
}
