// Package password verifies login passwords against stored hashes.
//
// Two encodings are understood:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>   (PHC)
//	$2a$<cost>$...  / $2b$ / $2y$                                  (bcrypt)
//
// [Auto] picks the right algorithm from the stored hash, so a user directory
// can hold a mix of both while new hashes are produced with one default.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other tokenauth package.
//   - Log plaintext passwords.
package password
