package performance

import "time"

// TimeBucket is a coarse time-of-day bucket.
func TimeBucket(t time.Time) string {
	switch h := t.Hour(); {
	case h < 6:
		return "night"
	case h < 12:
		return "morning"
	case h < 18:
		return "afternoon"
	default:
		return "evening"
	}
}

// ContextKey combines a scene identifier with the time-of-day bucket of t.
func ContextKey(scene string, t time.Time) string {
	if scene == "" {
		scene = "default"
	}
	return scene + "@" + TimeBucket(t)
}
