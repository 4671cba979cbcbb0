package chat

import "errors"

// ErrNotReady is returned when a document's ingestion has not completed
// successfully. Only SUCCESS unlocks retrieval; PROCESSING and FAILED
// documents are not queryable.
var ErrNotReady = errors.New("document is not ready for questions")
