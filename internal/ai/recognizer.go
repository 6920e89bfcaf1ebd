package ai

import "context"

// Entity is a single field value recognized in posting text, with the
// recognizer's own confidence in [0,1]. Field names match the posting
// field constants.
type Entity struct {
	Field      string
	Value      string
	Confidence float64
}

// Recognizer performs entity recognition over normalized posting text. It
// is an optional resource: callers must treat unavailability or failure as
// "no NLP contribution", never as a pipeline error.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]Entity, error)
}
