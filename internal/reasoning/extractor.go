// Package reasoning implements the Reasoning Extractor: a per-request state
// machine with no I/O that normalizes decoded wire.Events into a uniform
// Reasoning/Answer/EndOfReason/Done stream, handling both providers that
// expose reasoning in a dedicated field (native mode) and providers that
// inline it inside <think>…</think> tags in the ordinary content stream
// (tag-sniff mode).
package reasoning

import (
	"strings"

	"github.com/xinyihrsinuo/DeepClaude/internal/wire"
)

const (
	openTag  = "<think>"
	closeTag = "</think>"
)

// Kind tags a normalized output event.
type Kind int

const (
	Reasoning Kind = iota
	Answer
	EndOfReason
	Done
)

// Event is one normalized unit emitted by the Extractor.
type Event struct {
	Kind Kind
	Text string
}

type tagState int

const (
	outside tagState = iota
	inside
)

// Extractor is constructed once per upstream call. It is not safe for
// concurrent use — each in-flight request owns its own instance.
type Extractor struct {
	nativeMode bool

	// native-mode bookkeeping
	seenReasoning    bool
	endOfReasonEmitted bool

	// tag-sniff bookkeeping
	state tagState
	acc   strings.Builder

	done bool
}

// New constructs an Extractor. isOriginReasoning selects native mode (the
// adapter's Reasoning/Answer tagging is trusted) vs tag-sniff mode (raw
// <think> tags are scanned for inside Answer text).
func New(isOriginReasoning bool) *Extractor {
	return &Extractor{nativeMode: isOriginReasoning}
}

// Feed processes one decoded wire.Event and returns zero or more normalized
// Events. Once a Done has been returned, further calls return nil.
func (e *Extractor) Feed(in wire.Event) []Event {
	if e.done {
		return nil
	}

	if in.Kind == wire.EventDone {
		e.done = true
		return []Event{{Kind: Done}}
	}

	if in.Text == "" {
		return nil
	}

	if e.nativeMode {
		return e.feedNative(in)
	}
	return e.feedTagSniff(in)
}

func (e *Extractor) feedNative(in wire.Event) []Event {
	switch in.Kind {
	case wire.EventReasoning:
		e.seenReasoning = true
		return []Event{{Kind: Reasoning, Text: in.Text}}
	case wire.EventAnswer:
		if e.seenReasoning && !e.endOfReasonEmitted {
			e.endOfReasonEmitted = true
			return []Event{{Kind: EndOfReason}, {Kind: Answer, Text: in.Text}}
		}
		return []Event{{Kind: Answer, Text: in.Text}}
	default:
		return nil
	}
}

// feedTagSniff accumulates raw text across deltas so a <think>/</think> tag
// split across two chunks is still matched as a single tag, then drains the
// buffer, emitting Reasoning/Answer/EndOfReason as tag boundaries resolve.
func (e *Extractor) feedTagSniff(in wire.Event) []Event {
	e.acc.WriteString(in.Text)
	var out []Event

	for {
		buf := e.acc.String()
		switch e.state {
		case outside:
			idx := strings.Index(buf, openTag)
			if idx < 0 {
				flush, pending := splitTrailingPartial(buf, openTag)
				if flush != "" {
					out = append(out, Event{Kind: Answer, Text: flush})
				}
				e.acc.Reset()
				e.acc.WriteString(pending)
				return out
			}
			if before := buf[:idx]; before != "" {
				out = append(out, Event{Kind: Answer, Text: before})
			}
			e.acc.Reset()
			e.acc.WriteString(buf[idx:])
			e.state = inside

		case inside:
			idx := strings.Index(buf, closeTag)
			if idx < 0 {
				flush, pending := splitTrailingPartial(buf, closeTag)
				if flush != "" {
					out = append(out, Event{Kind: Reasoning, Text: flush})
				}
				e.acc.Reset()
				e.acc.WriteString(pending)
				return out
			}
			end := idx + len(closeTag)
			out = append(out, Event{Kind: Reasoning, Text: buf[:end]})
			out = append(out, Event{Kind: EndOfReason})
			e.acc.Reset()
			e.acc.WriteString(buf[end:])
			e.state = outside
		}
	}
}

// splitTrailingPartial splits buf into (safe-to-flush, pending) where
// pending is the longest suffix of buf that is also a proper prefix of tag —
// i.e. text that might still complete into tag once more input arrives.
func splitTrailingPartial(buf, tag string) (flush, pending string) {
	maxCheck := len(tag) - 1
	if maxCheck > len(buf) {
		maxCheck = len(buf)
	}
	for n := maxCheck; n > 0; n-- {
		suffix := buf[len(buf)-n:]
		if strings.HasPrefix(tag, suffix) {
			return buf[:len(buf)-n], suffix
		}
	}
	return buf, ""
}
