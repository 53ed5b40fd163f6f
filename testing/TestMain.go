// Package testing switches the process into test mode when imported by
// package tests, so entry points skip connecting to Postgres and Redis.
package testing

import (
	"os"
	"sync"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("ASSETDESK_TEST_MODE", "1")
	})
}

func init() {
	ensureTestMode()
}
