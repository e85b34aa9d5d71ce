//go:build !windows

package mpv

// isPipeReady is only meaningful for Windows named pipes
func isPipeReady(string) bool {
	return false
}
