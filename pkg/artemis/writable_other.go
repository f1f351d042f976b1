//go:build !unix

package artemis

import "os"

// dirWritable checks by creating and removing a temporary file.
func dirWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".artemis-check-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
