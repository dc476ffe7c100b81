package spec

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Values matching this can be re-emitted without quotes.
var noQuotesNeeded = regexp.MustCompile(`^[a-zA-Z0-9,/_.\-\[\]]+$`)

// QuoteIfNeeded wraps a value in quotes unless it consists entirely of
// characters that are safe to emit bare. Single quotes are preferred;
// values containing a single quote are emitted as a JSON-escaped
// double-quoted string.
func QuoteIfNeeded(value string) string {
	if noQuotesNeeded.MatchString(value) {
		return value
	}
	if strings.Contains(value, "'") {
		out, err := json.Marshal(value)
		if err != nil {
			// strings always marshal
			return value
		}
		return string(out)
	}
	return "'" + value + "'"
}

// StripQuotesAndUnescape removes surrounding single or double quotes from
// a value, if present, and unescapes any escaped quotes of the same kind.
func StripQuotesAndUnescape(value string) string {
	if len(value) < 2 {
		return value
	}
	quote := value[0]
	if (quote != '\'' && quote != '"') || value[len(value)-1] != quote {
		return value
	}
	inner := value[1 : len(value)-1]
	return strings.ReplaceAll(inner, `\`+string(quote), string(quote))
}
