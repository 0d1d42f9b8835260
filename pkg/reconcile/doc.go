// Package reconcile holds the authoritative payload for every producer
// output slot and decides how successive updates combine.
//
// # Sources of Updates
//
// A slot receives payloads from three independent, asynchronous sources:
// geometric recomputes (upstream moved), AI strategy arrival (new
// overrides), and generated asset arrival (new preview). They may complete in
// any order. [Merge] is a pure function that folds a candidate into the
// current payload under a fixed priority of rules:
//
//  1. Gate: a candidate with generation disabled loses every generative
//     layer and all preview, confirmation and synthesis state.
//  2. Staleness: a candidate whose token is smaller than the stored token is
//     discarded.
//  3. Idle: an idle candidate (source disconnected) drops preview and
//     confirmation state.
//  4. Synthesis start: a candidate announcing an in-flight generation keeps
//     the stored preview, reference, target, metrics and token.
//  5. Confirmation guard: a transient preview is never confirmed.
//  6. Geometry refresh: a candidate without a token keeps the stored
//     asset state and adopts the new geometry.
//  7. Default: the candidate wins, with reference, token and confirmation
//     backfilled from the stored payload when omitted.
//
// Rule 5 holds on every path that stores a payload.
//
// # Store
//
// [Store] is the only writer of slot state. Every submission passes through
// [Merge]; results equal to the stored payload (by content hash) are not
// stored again and do not notify subscribers.
//
// # Tokens and Debounce
//
// [Sequencer] issues strictly increasing generation tokens at dispatch
// time, so a request dispatched later always carries a larger token than one
// dispatched earlier, regardless of completion order. [Debouncer] delays a
// trigger until input has been quiet for a while.
package reconcile
