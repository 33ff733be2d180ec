// Package stream runs GraphQL subscription streams over a ledger.
//
// Each subscription is served by one Session bound to one HTTP response.
// A session moves through the states
//
//	starting -> emitting -> completing -> completed
//	                     \-> errored
//	                     \-> cancelled
//
// Balance streams emit a snapshot and then bursts of incoming payments,
// each credited to the ledger, until a cap is reached. Transaction streams
// post a fixed number of randomized transactions, one per tick. Events of a
// session are strictly ordered and each is written and flushed before the
// next one is scheduled. Delays are timers raced against the session
// context, so a disconnect stops the stream before any further ledger
// mutation.
package stream
