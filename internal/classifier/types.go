// Package classifier turns batches of bookmarks into validated
// destination assignments using an external LLM provider.
package classifier

import (
	"errors"
	"fmt"
)

// KeepCurrent is the sentinel destination meaning "do not move this
// item". It is always a valid reply regardless of the vocabulary.
const KeepCurrent = "KEEP_CURRENT"

var (
	// ErrEmptyVocabulary signals a caller configuration error. No
	// network call is attempted.
	ErrEmptyVocabulary = errors.New("classifier: approved vocabulary is empty")

	// ErrNoAPIKey signals a missing provider credential.
	ErrNoAPIKey = errors.New("classifier: API key not set")
)

// Item is one bookmark submitted for classification. Only the title
// and the host derived from the URL are sent to the provider.
type Item struct {
	ID    string
	Title string
	URL   string
}

// Usage holds normalized token counters. Provider field names vary;
// they are mapped onto this shape by each provider's reply parser.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Add accumulates another usage record.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Coercion records a destination the provider returned that was not in
// the vocabulary and had to be rewritten. Recorded for observability,
// never silently swallowed.
type Coercion struct {
	Index int    `json:"index"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// Result is the validated outcome of one batch. Destinations has
// exactly one entry per submitted item, matched by position.
type Result struct {
	Destinations []string
	Coercions    []Coercion
	Usage        Usage
}

// BatchError wraps the terminal failure of a batch after retries were
// exhausted (or a non-retryable condition was hit). A batch either
// fully resolves or fails as a whole; there are no partial results.
type BatchError struct {
	Attempts int
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("classifier: batch failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
