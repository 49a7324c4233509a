// Package identity provides the authentication core for a user identity
// backend: password login issuing signed bearer tokens with role claims,
// plus the email verification and password reset PIN lifecycles.
//
// Verification PINs:
//   - Each user carries at most one outstanding PIN per kind (email
//     verification or password reset). PINs are 6 digit codes valid for
//     15 minutes and consumed on first successful verification. Issuing a
//     new PIN invalidates the previous one. The Ledger type centralizes
//     the issue/verify/consume state machine; repositories persist the
//     PIN columns inside the same transaction as the rest of the flow.
//
// Tokens:
//   - TokenService signs HS256 JWTs carrying subject id, username, email,
//     a fresh token id, and one (name, id) claim pair per assigned role.
//     A missing signing key is a configuration error reported at
//     construction time, never per request.
//
// Collaborators:
//   - Storage goes through RepositoryManager (bun repositories), outbound
//     email through NotificationSender, password hashing through the
//     bcrypt helpers. All are narrow interfaces so the command handlers
//     stay testable with mocks.
package identity
