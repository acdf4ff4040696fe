package cryptox

import (
	"os"
	"strings"
	"sync"
)

var (
	pepperOnce sync.Once
	pepper     string
	pepperPath string
)

// SetPepperPath configures where to load the password pepper from. Must be
// called before the first hash/verify operation; later calls have no effect.
func SetPepperPath(path string) {
	pepperPath = path
}

// GetPepper returns the configured pepper, loading it on first use.
//
// Resolution order:
//  1. File named by SetPepperPath (if set and readable)
//  2. AUTHD_PEPPER environment variable
//  3. Empty string (hashing still works, just without a pepper)
func GetPepper() string {
	pepperOnce.Do(func() {
		if pepperPath != "" {
			if data, err := os.ReadFile(pepperPath); err == nil {
				pepper = strings.TrimSpace(string(data))
				return
			}
		}
		pepper = os.Getenv("AUTHD_PEPPER")
	})
	return pepper
}
