//go:build debug
// +build debug

package tag

// Debug enables extra runtime checks. Build with -tags debug.
const Debug = true
