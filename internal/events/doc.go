// Package events defines the typed event stream between the generation
// backend and the session layer.
//
// # Overview
//
// The backend delivers loosely-typed JSON payloads while a turn is being
// generated: partial text, partial reasoning, tool activity, search
// decisions, attachment fetch progress, and the terminal completion,
// error, or stop acknowledgement. This package converts those payloads
// into a closed set of tagged Event variants at the boundary, so nothing
// untyped flows further into the application.
//
// # Parsing
//
// Parse rejects payloads that name an unknown kind or omit the payload a
// kind requires:
//
//	ev, err := events.Parse(raw)
//	if err != nil {
//	    // dropped and logged by the caller, never fatal
//	}
//
// Every event carries a conversation id. Ordering is guaranteed only
// within one conversation's sequence; nothing is promised across
// conversations.
//
// # Broker
//
// Broker is the in-process event source implementation. Backend adapters
// publish typed events into it; the dispatcher subscribes:
//
//	ch, dispose := broker.Subscribe(ctx)
//	defer dispose()
//
// Publish never blocks: events are dropped for subscribers that fall
// behind their channel buffer.
package events
