package instrumentation

import "strings"

// ExtractUserDomain extracts the domain part from an email address.
// Used instead of full addresses on metric labels.
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("invalid")           // "unknown"
//	ExtractUserDomain("")                  // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}

	return "unknown"
}

// maxVerbRunes caps SQLVerb output.
const maxVerbRunes = 16

// SQLVerb returns the first word of a statement, uppercased, for
// low-cardinality labels and audit lines. Empty input yields "unknown".
// The result is valid UTF-8 and at most maxVerbRunes characters long.
func SQLVerb(sql string) string {
	fields := strings.Fields(strings.ToValidUTF8(sql, "\uFFFD"))
	if len(fields) == 0 {
		return "unknown"
	}
	verb := []rune(strings.ToUpper(fields[0]))
	if len(verb) > maxVerbRunes {
		verb = verb[:maxVerbRunes]
	}
	return string(verb)
}
