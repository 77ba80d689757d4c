// Package calendar connects external calendar accounts and reconciles their
// events with church records.
//
// A sync pulls events for one connected account inside a time window and
// matches each against a church:
//
//  1. Explicit mapping for the external id (set when an admin resolves an
//     unmatched event)
//  2. Church of the existing record for the external id
//  3. The single church whose calendar keyword occurs in the title or
//     description, ignoring case
//
// Matched events are upserted by external id. Events with zero or several
// keyword hits go to the unmatched holding area once and stay there until an
// admin resolves them. Cancelled events are removed from both places.
//
// SyncAll fans out over every connection with a bounded worker limit and
// reports one Result per account; a failing account never stops the others.
package calendar
