// Package dispatch routes backend events into the session layer and
// handles stop intents.
//
// The Dispatcher subscribes to an EventSource and forwards each event to
// the session store keyed by the event's conversation id. It makes no
// ordering promise across conversations and never blocks one
// conversation's events on another's; per-conversation ordering is the
// session store's job. Events that fail basic validation are dropped and
// logged.
//
// The Controller implements cancellation. Stop(ctx, id) resets the named
// session immediately and then sends the stop-generation command to the
// backend, so the UI is never left waiting on an acknowledgement that may
// not come.
package dispatch
