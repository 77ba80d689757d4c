// Package session turns request credentials into an auth.Session.
//
// Two credential kinds are understood, tried in a fixed order:
//
//   - ProviderAuthenticator: the credential store's access token, from the
//     Authorization header or the provider session cookie
//   - LegacyAuthenticator: the deprecated church-leader cookie, verified
//     against the legacy_sessions table
//
// Request Flow:
//
//	Request → Resolver.Resolve() → Authenticator.Authenticate() → *auth.Session
//	       ↓
//	   Handler → auth.IsChurchLeader(session, churchID), auth.IsAdmin(session), ...
//
// A missing, malformed or expired credential is not an error: the resolver
// moves on to the next authenticator and finally returns (nil, nil). Errors
// are reserved for the credential store or database being unreachable.
//
// Roles resolved for a provider credential are kept in a RoleCache keyed by
// the credential hash. The cache is an optimization only; logout and every
// role write through RoleAdmin invalidate the affected entries.
package session
