// Package auth is the authentication service of the logistics platform. It
// issues OAuth2 access tokens and keeps the locally stored users consistent
// with the reference data service.
//
// Token issuance:
//   - TokenServices grants tokens for the password and refresh_token grants.
//     Tokens are signed as HS256 JWTs, stored in a TokenStore before they are
//     returned and can be introspected or revoked later. Refresh tokens are
//     always supported.
//   - A TokenEnhancer runs before signing. AccessTokenEnhancer adds the
//     referenceDataUserId claim; validity, scope, principal and refresh
//     association stay immutable.
//
// User upsert:
//   - UserValidator checks an inbound UserRequest against reference data and
//     the local store. Callers without USERS_MANAGE may not change invariant
//     fields, and nobody may change verified.
//   - UserService creates or updates the local User, SaveUserHandler runs both
//     and emits activity events.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the token services
//     and the save user handler. Sinks run best-effort (errors are logged) so
//     you can forward to a database or queue without blocking authentication.
package auth
