// Package gls provides the minimal "thread-local storage" primitive the
// framework needs: a way to key per-goroutine state (the assertion
// stack, the context stack, the log id counter) the same way the
// original C++ library keys them off the OS thread. Go has no public
// goroutine-id API, so this recovers the id the same way a handful of
// other goroutine-local-storage packages in the wild do: by parsing the
// "goroutine N [running]:" header of a runtime.Stack dump. It is used
// only as an identity key for a map, never for scheduling decisions.
package gls

import (
	"runtime"
	"strconv"
)

// ID returns the current goroutine's id.
func ID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]

	// Expected prefix: "goroutine 123 [running]:\n"
	const prefix = "goroutine "
	if len(b) < len(prefix) {
		return 0
	}
	b = b[len(prefix):]
	end := 0
	for end < len(b) && b[end] >= '0' && b[end] <= '9' {
		end++
	}
	id, err := strconv.ParseInt(string(b[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
