/*
Package alog provides structured logging for atelier using zerolog.

A single global zerolog.Logger is initialized via Init(Config), switching
between a human-readable zerolog.ConsoleWriter and raw JSON depending on
Config.JSONOutput. WithProject, WithClient, and WithOperation attach the
fields this domain cares about to a child logger: which embedder project a
line concerns, which local/collab client emitted it, and which operation was
being dispatched.

Call sites follow the same discipline the block store and wire codec use for
errors: routine outcomes (a malformed wire message, a key-exhaustion stall)
are logged and not surfaced as Go errors, since they're expected conditions
a peer or an exhausted reservoir can produce rather than programming errors.
*/
package alog
