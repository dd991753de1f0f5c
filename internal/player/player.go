// Package player abstracts the host page's video element. The engine only
// ever asks for primitive values; when no video is present the second return
// is false and note operations degrade to no-ops rather than errors.
package player

// Player exposes the host page capabilities the engine depends on.
type Player interface {
	// VideoID returns the stable identifier for the current video.
	VideoID() (string, bool)
	// Title returns a best-effort display title for the current video.
	Title() string
	// CurrentTime returns the playback offset in seconds.
	CurrentTime() (float64, bool)
	// Duration returns the total duration in seconds. Unavailable until the
	// video metadata has loaded.
	Duration() (float64, bool)
}
