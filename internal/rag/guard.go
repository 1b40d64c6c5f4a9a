package rag

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrEmptyQuery is returned for blank queries.
var ErrEmptyQuery = errors.New("query is empty")

// ErrQueryTooLong is returned for queries over MaxQueryRunes.
var ErrQueryTooLong = errors.New("query is too long")

// MaxQueryRunes bounds the question length.
const MaxQueryRunes = 4000

var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`act\s+as\s+|pretend\s+|forget\s+(everything|all)|override|` +
		`new\s+instructions)`,
)

func validateQuery(q string) error {
	if strings.TrimSpace(q) == "" {
		return ErrEmptyQuery
	}
	if utf8.RuneCountInString(q) > MaxQueryRunes {
		return ErrQueryTooLong
	}
	return nil
}

// suspicious reports queries phrased like prompt-injection attempts. They
// are still answered; the flag only feeds logging.
func suspicious(q string) bool {
	return injectionPattern.MatchString(q)
}
