package adapters

import "strings"

var (
	remoPlaceholderTokens    = []string{"YOUR_NATURE_REMO_ACCESS_TOKEN", "YOUR_REMO_ACCESS_TOKEN"}
	remoPlaceholderSignalIDs = []string{"YOUR_NATURE_REMO_SIGNAL_ID", "YOUR_SPEAKER_SIGNAL_ID", "YOUR_HUMIDIFIER_SIGNAL_ID"}
	sheetsPlaceholderIDs     = []string{"YOUR_SPREADSHEET_ID"}
)

// IsPlaceholder reports whether value is empty or one of the template values shipped in
// example configs. Adapters skip their calls for such values.
func IsPlaceholder(value string) bool {
	for _, list := range [][]string{remoPlaceholderTokens, remoPlaceholderSignalIDs, sheetsPlaceholderIDs} {
		if isPlaceholder(value, list) {
			return true
		}
	}
	return false
}

func isPlaceholder(value string, placeholders []string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return true
	}
	for _, p := range placeholders {
		if value == p {
			return true
		}
	}
	return false
}
