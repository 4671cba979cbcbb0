// Package chatui models the chat view's optimistic message cache as a pure
// reducer over immutable snapshots.
//
// The browser client this models keeps a paginated, newest-first message
// list. Sending a message optimistically prepends it, streams the reply into
// a single sentinel entry, rolls everything back on failure, and reconciles
// with server truth on settlement. Expressing that as (State, event) -> State
// makes the rollback and sentinel invariants directly testable instead of
// incidental cache behavior.
package chatui

import "time"

// SentinelAssistantID is the fixed placeholder id the in-progress assistant
// reply carries until the server assigns real identity. At most one entry
// with this id exists per in-flight exchange.
const SentinelAssistantID = "ai-response"

// Message is one entry of the client-side list.
type Message struct {
	ID            string
	Text          string
	IsUserMessage bool
	CreatedAt     time.Time
}

// Page is one fetched page of the newest-first list.
type Page struct {
	Messages []Message
}

// State is the complete client-side chat state. Values are treated as
// immutable; Reduce returns fresh copies.
type State struct {
	Pages   []Page
	Input   string
	Loading bool

	// NeedsRefetch asks the host to reconcile with durable storage,
	// replacing optimistic and sentinel ids with server-assigned truth.
	NeedsRefetch bool

	// Rollback snapshot, captured at submit and dropped at settlement.
	backupPages []Page
	backupInput string
}

// Event is one of Submit, TokenReceived, Failed, Settled.
type Event interface{ isEvent() }

// Submit is the user sending the current input. ID is the locally generated
// id for the optimistic user message.
type Submit struct {
	ID   string
	Text string
	At   time.Time
}

// TokenReceived is one decoded chunk of the streamed reply.
type TokenReceived struct {
	Chunk []byte
	At    time.Time
}

// Failed is the send failing before or during the stream.
type Failed struct{}

// Settled is the exchange finishing, successfully or not.
type Settled struct{}

func (Submit) isEvent()        {}
func (TokenReceived) isEvent() {}
func (Failed) isEvent()        {}
func (Settled) isEvent()       {}

// Reduce applies one event and returns the next state. The input state is
// never mutated.
func Reduce(state State, event Event) State {
	switch e := event.(type) {
	case Submit:
		return reduceSubmit(state, e)
	case TokenReceived:
		return reduceToken(state, e)
	case Failed:
		return reduceFailed(state)
	case Settled:
		return reduceSettled(state)
	default:
		return state
	}
}

func reduceSubmit(state State, e Submit) State {
	next := state

	// Submitting cancels any pending background refetch so it cannot
	// clobber the optimistic write, and snapshots for rollback.
	next.NeedsRefetch = false
	next.backupPages = state.Pages
	next.backupInput = state.Input

	optimistic := Message{
		ID:            e.ID,
		Text:          e.Text,
		IsUserMessage: true,
		CreatedAt:     e.At,
	}
	next.Pages = prependToFirstPage(state.Pages, optimistic)
	next.Input = ""
	next.Loading = true

	return next
}

func reduceToken(state State, e TokenReceived) State {
	next := state
	acc := currentSentinelText(state.Pages) + string(e.Chunk)

	if hasSentinel(state.Pages) {
		next.Pages = replaceSentinelText(state.Pages, acc)
	} else {
		next.Pages = prependToFirstPage(state.Pages, Message{
			ID:        SentinelAssistantID,
			Text:      acc,
			CreatedAt: e.At,
		})
	}

	return next
}

func reduceFailed(state State) State {
	next := state
	next.Pages = state.backupPages
	next.Input = state.backupInput
	return next
}

func reduceSettled(state State) State {
	next := state
	next.Loading = false
	next.NeedsRefetch = true
	next.backupPages = nil
	next.backupInput = ""
	return next
}

func prependToFirstPage(pages []Page, msg Message) []Page {
	if len(pages) == 0 {
		return []Page{{Messages: []Message{msg}}}
	}

	out := make([]Page, len(pages))
	copy(out, pages)

	first := make([]Message, 0, len(pages[0].Messages)+1)
	first = append(first, msg)
	first = append(first, pages[0].Messages...)
	out[0] = Page{Messages: first}

	return out
}

func hasSentinel(pages []Page) bool {
	for _, page := range pages {
		for _, msg := range page.Messages {
			if msg.ID == SentinelAssistantID {
				return true
			}
		}
	}
	return false
}

func currentSentinelText(pages []Page) string {
	for _, page := range pages {
		for _, msg := range page.Messages {
			if msg.ID == SentinelAssistantID {
				return msg.Text
			}
		}
	}
	return ""
}

// replaceSentinelText swaps the sentinel entry's text, keeping a single
// growing bubble instead of appending duplicates.
func replaceSentinelText(pages []Page, text string) []Page {
	out := make([]Page, len(pages))
	for i, page := range pages {
		msgs := make([]Message, len(page.Messages))
		for j, msg := range page.Messages {
			if msg.ID == SentinelAssistantID {
				msg.Text = text
			}
			msgs[j] = msg
		}
		out[i] = Page{Messages: msgs}
	}
	return out
}
