// Package filex holds small filesystem helpers for host-side state files.
package filex

import (
	"fmt"
	"os"
)

// EnsureDir creates dir (and parents) with owner/group access only.
// An empty dir or "." means the working directory and is a no-op.
func EnsureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}
