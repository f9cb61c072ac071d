package guard

import (
	"fmt"
	"strings"
)

// ActionSelect is the only action the export tool requests.
const ActionSelect = "select"

// ReasonOK is returned alongside allowed=true.
const ReasonOK = "OK"

// forbiddenKeywords is scanned in order, so the first match is the one reported.
var forbiddenKeywords = []string{
	"DROP",
	"CREATE DATABASE",
	"GRANT",
	"REVOKE",
	"ALTER USER",
	"FLUSH",
	"SHUTDOWN",
	"COPY",
	"TRUNCATE",
	"DELETE",
	"UPDATE",
	"INSERT",
}

// ForbiddenKeywords returns a copy of the denylist.
func ForbiddenKeywords() []string {
	out := make([]string, len(forbiddenKeywords))
	copy(out, forbiddenKeywords)
	return out
}

// Check classifies sql for the intended action.
// It returns allowed=false and a reason naming the violated rule when the
// statement is rejected.
func Check(sql, action string) (bool, string) {
	normalized := strings.TrimSpace(strings.ToUpper(sql))

	for _, kw := range forbiddenKeywords {
		if strings.Contains(normalized, kw) {
			return false, fmt.Sprintf("forbidden keyword: %s", kw)
		}
	}

	if action == ActionSelect && !strings.HasPrefix(normalized, "SELECT") {
		return false, "only SELECT statements are allowed"
	}

	return true, ReasonOK
}

// PolicyError reports a statement rejected by Check.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return e.Reason
}

// Validate is Check expressed as an error: nil when allowed, *PolicyError otherwise.
func Validate(sql, action string) error {
	if ok, reason := Check(sql, action); !ok {
		return &PolicyError{Reason: reason}
	}
	return nil
}
