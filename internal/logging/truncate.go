package logging

// MaxLogFieldLength bounds free-form log fields such as startup script
// contents so a single entry cannot flood the debug log.
const MaxLogFieldLength = 1024

// Truncate shortens s to MaxLogFieldLength characters.
func Truncate(s string) string {
	return TruncateN(s, MaxLogFieldLength)
}

// TruncateN shortens s to at most n characters, appending "..." when
// anything was cut off.
func TruncateN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
