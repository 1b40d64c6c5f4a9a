package rag

import "strings"

// CasualMode selects how greetings are recognised.
type CasualMode string

const (
	// CasualExact matches the whole normalised query against the table.
	CasualExact CasualMode = "exact"
	// CasualContains matches when a table phrase occurs anywhere in the
	// lowercased query, so "hi" also fires inside "this".
	CasualContains CasualMode = "contains"
)

const greetingReply = "Hello! How can I assist you today?"

type casualReply struct {
	phrase string
	reply  string
}

// casualReplies is checked in order; the first match wins.
var casualReplies = []casualReply{
	{"hello", "Hello! How can I help you today?"},
	{"hi", "Hi there! What can I do for you?"},
	{"how are you", "I'm an AI, so I don't have feelings, but I'm here to help you!"},
	{"goodbye", "Goodbye! Have a great day!"},
	{"bye", "Bye! Take care!"},
	{"hey", greetingReply},
	{"heya", greetingReply},
	{"hola", greetingReply},
	{"good morning", greetingReply},
	{"good afternoon", greetingReply},
	{"good evening", greetingReply},
	{"ohio", greetingReply},
	{"wassup", greetingReply},
}

// normalizeCasual lowercases, collapses whitespace and drops trailing
// punctuation.
func normalizeCasual(q string) string {
	q = strings.Join(strings.Fields(strings.ToLower(q)), " ")
	return strings.TrimRight(q, "!?.")
}

// matchCasual returns the canned reply for q, if any.
func matchCasual(q string, mode CasualMode) (string, bool) {
	if mode == CasualContains {
		lower := strings.ToLower(q)
		for _, c := range casualReplies {
			if strings.Contains(lower, c.phrase) {
				return c.reply, true
			}
		}
		return "", false
	}

	norm := normalizeCasual(q)
	for _, c := range casualReplies {
		if norm == c.phrase {
			return c.reply, true
		}
	}
	return "", false
}
