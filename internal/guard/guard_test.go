package guard

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name        string
		sql         string
		action      string
		wantAllowed bool
		wantReason  string
	}{
		{
			name:        "plain select",
			sql:         "SELECT id, name FROM users",
			action:      ActionSelect,
			wantAllowed: true,
			wantReason:  ReasonOK,
		},
		{
			name:        "lowercase select with surrounding whitespace",
			sql:         "  \n select 1 \t",
			action:      ActionSelect,
			wantAllowed: true,
			wantReason:  ReasonOK,
		},
		{
			name:        "delete rejected",
			sql:         "DELETE FROM users",
			action:      ActionSelect,
			wantAllowed: false,
			wantReason:  "forbidden keyword: DELETE",
		},
		{
			name:        "keyword hidden in select",
			sql:         "select * from users; drop table users",
			action:      ActionSelect,
			wantAllowed: false,
			wantReason:  "forbidden keyword: DROP",
		},
		{
			name:        "over-rejects column names containing keywords",
			sql:         "SELECT update_count FROM stats",
			action:      ActionSelect,
			wantAllowed: false,
			wantReason:  "forbidden keyword: UPDATE",
		},
		{
			name:        "multi-word keyword",
			sql:         "create database other",
			action:      "",
			wantAllowed: false,
			wantReason:  "forbidden keyword: CREATE DATABASE",
		},
		{
			name:        "first keyword in list order wins",
			sql:         "INSERT INTO t SELECT * FROM s; DROP TABLE s",
			action:      ActionSelect,
			wantAllowed: false,
			wantReason:  "forbidden keyword: DROP",
		},
		{
			name:        "keyword-free non-select rejected for select action",
			sql:         "WITH x AS (SELECT 1) SELECT * FROM x",
			action:      ActionSelect,
			wantAllowed: false,
			wantReason:  "only SELECT statements are allowed",
		},
		{
			name:        "keyword-free non-select allowed for other actions",
			sql:         "EXPLAIN SELECT 1",
			action:      "explain",
			wantAllowed: true,
			wantReason:  ReasonOK,
		},
		{
			name:        "empty string rejected for select action",
			sql:         "",
			action:      ActionSelect,
			wantAllowed: false,
			wantReason:  "only SELECT statements are allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, reason := Check(tt.sql, tt.action)
			assert.Equal(t, tt.wantAllowed, allowed)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestCheck_DenylistAnyCaseAnyAction(t *testing.T) {
	for _, kw := range ForbiddenKeywords() {
		variants := []string{
			"SELECT 1 " + kw,
			"select 1 " + strings.ToLower(kw),
			kw + " something",
		}
		for _, action := range []string{ActionSelect, "", "other"} {
			for _, sql := range variants {
				allowed, reason := Check(sql, action)
				assert.False(t, allowed, "sql=%q action=%q", sql, action)
				assert.True(t, strings.HasPrefix(reason, "forbidden keyword: "), "reason=%q", reason)
			}
		}
	}
}

func TestForbiddenKeywords_ReturnsCopy(t *testing.T) {
	kws := ForbiddenKeywords()
	kws[0] = "MUTATED"
	assert.Equal(t, "DROP", ForbiddenKeywords()[0])
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("SELECT 1", ActionSelect))

	err := Validate("TRUNCATE users", ActionSelect)
	var policyErr *PolicyError
	if assert.True(t, errors.As(err, &policyErr)) {
		assert.Equal(t, "forbidden keyword: TRUNCATE", policyErr.Reason)
		assert.Equal(t, "forbidden keyword: TRUNCATE", err.Error())
	}
}
