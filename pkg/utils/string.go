package utils

// Truncate shortens s to maxLen runes, appending "..." when it cuts.
// Captions and memory content are user text, so it never splits a rune.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
