// Package auth validates player tokens and resolves display names.
//
// TokenService issues HS256 JWTs whose subject is the player id and whose
// optional name claim carries the display name. Logged-out tokens are kept
// on a blacklist until they expire. Directory maps player ids to names and
// can be seeded from a JSON users file.
package auth
