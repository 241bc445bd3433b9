// Package password provides credential hashing behind a single [Hasher]
// interface with two implementations: argon2id (PHC string format) and
// bcrypt. The encoded hash is self-describing, so every identity record
// carries its own salt and algorithm tag and verification never consults
// engine configuration.
//
// Verification is constant-time for both implementations.
package password
