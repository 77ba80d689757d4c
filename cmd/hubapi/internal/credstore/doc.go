// Package credstore is the client for the managed credential store, a
// GoTrue-compatible auth API that owns identities, passwords and magic links.
//
// Two keys are used:
//   - the anon key, sent as "apikey" on user-scoped calls such as resolving
//     an access token into an identity
//   - the service role key, required for the admin surface (create user,
//     change email, generate links)
//
// When the project JWT secret is configured, access tokens are verified
// locally (HS256) and the /user round trip is skipped.
package credstore
