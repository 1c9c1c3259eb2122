package cooldown

import (
	"regexp"
	"strconv"
)

// waitPattern matches the "N more minutes" fragment the backend embeds in
// its refresh rejection message, e.g. "Please wait 2.5 more minutes."
var waitPattern = regexp.MustCompile(`(\d+\.?\d*)\s+more\s+minutes`)

// ParseWaitMinutes extracts the wait in minutes from a refresh error message.
// It reports false when the message carries no such fragment.
func ParseWaitMinutes(message string) (float64, bool) {
	match := waitPattern.FindStringSubmatch(message)
	if match == nil {
		return 0, false
	}
	minutes, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return minutes, true
}
