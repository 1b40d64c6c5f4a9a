package rag

import (
	"strings"

	"github.com/dgallion1/docchat/internal/memory"
	"github.com/dgallion1/docchat/internal/vectorstore"
)

const contextSeparator = "\n\n---\n\n"

const promptTemplate = `You are an AI assistant. Use the following context to answer the question. If the context does not contain the information needed, use your pre-trained knowledge to provide a comprehensive answer.

Context:
{context}

---

Question: {question}

Answer:`

// formatMemory renders past exchanges oldest first.
func formatMemory(entries []memory.Entry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = "User: " + e.User + "\nBot: " + e.Bot
	}
	return strings.Join(parts, "\n\n")
}

func formatRetrieved(results []vectorstore.Result) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Text
	}
	return strings.Join(parts, contextSeparator)
}

// combineContext joins the non-empty parts with the section separator.
func combineContext(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.TrimSpace(strings.Join(kept, contextSeparator))
}

// BuildPrompt fills the answer template. The question is used verbatim.
func BuildPrompt(context, question string) string {
	return strings.NewReplacer("{context}", context, "{question}", question).Replace(promptTemplate)
}
