package app

import "strings"

// acknowledgmentPhrases are short client messages that accompany a document
// drop and need no automated answer.
var acknowledgmentPhrases = map[string]struct{}{
	"ok":          {},
	"okay":        {},
	"k":           {},
	"kk":          {},
	"thanks":      {},
	"thank you":   {},
	"thx":         {},
	"ty":          {},
	"sent":        {},
	"done":        {},
	"here":        {},
	"here you go": {},
	"voila":       {},
	"attached":    {},
	"see attached": {},
}

// shouldAutoReply decides whether an inbound message warrants a generated
// reply. Near-empty bodies never get one; acknowledgment-only bodies are
// suppressed when they accompany media, since the document itself is the
// conversation.
func shouldAutoReply(body string, hasMedia bool) bool {
	normalized := normalizeBody(body)
	if normalized == "" {
		return false
	}
	if hasMedia && isAcknowledgment(normalized) {
		return false
	}
	return true
}

func normalizeBody(body string) string {
	s := strings.ToLower(strings.TrimSpace(body))
	s = strings.Trim(s, ".,!?:;-")
	return strings.Join(strings.Fields(s), " ")
}

func isAcknowledgment(normalized string) bool {
	if _, ok := acknowledgmentPhrases[normalized]; ok {
		return true
	}
	// Short messages that start with an acknowledgment ("thanks!", "ok here
	// it is") count too.
	if len(normalized) <= 25 {
		for phrase := range acknowledgmentPhrases {
			if strings.HasPrefix(normalized, phrase+" ") {
				return true
			}
		}
	}
	return false
}
