// Package users provides [tokenauth.UserLookup] implementations.
//
// [MemoryDirectory] holds a fixed set of users in process memory and is what
// the demo service seeds at startup. [PostgresDirectory] reads the users
// table through a caller-owned pgxpool. [Migrate] applies the embedded schema.
//
// Emails are matched case-insensitively after trimming surrounding space.
package users
