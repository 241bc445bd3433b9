// Package rate provides the Redis-backed consecutive-failure counters that
// drive account lockout.
//
// # Window semantics
//
// Fixed-window counters: INCR plus EXPIRE on the first hit, window length set
// by the lockout window. A successful authentication deletes the counter, so
// only consecutive failures accumulate. Key prefix: af: (auth failures).
//
// # What this package must NOT do
//
//   - Decide when an account locks (the threshold policy lives in the
//     engine; this package only counts).
//   - Be imported outside the authcore module.
package rate
