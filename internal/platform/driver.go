package platform

import (
	"errors"
	"sync"
)

// ErrNoDriver is returned by Open when no SDK binding has been registered.
var ErrNoDriver = errors.New("no conferencing driver registered")

var (
	driverMu sync.Mutex
	driver   func() SDK
)

// RegisterDriver installs the vendor SDK binding. Bindings call it from an
// init function, the bot binary selects one with a blank import. Calling it
// twice panics, there is exactly one platform per build.
func RegisterDriver(fn func() SDK) {
	driverMu.Lock()
	defer driverMu.Unlock()
	if driver != nil {
		panic("platform: driver already registered")
	}
	driver = fn
}

// Open returns a fresh SDK instance from the registered driver.
func Open() (SDK, error) {
	driverMu.Lock()
	defer driverMu.Unlock()
	if driver == nil {
		return nil, ErrNoDriver
	}
	return driver(), nil
}
