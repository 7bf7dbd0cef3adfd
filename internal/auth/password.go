// password.go wraps bcrypt password hashing and verification. Passwords are
// hashed by the service layer before reaching the repository — there is no
// persistence-layer hook that rewrites them.
package auth

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost is the bcrypt work factor used when config does not
// override it.
const DefaultBcryptCost = 12

// HashPassword returns the bcrypt hash of a plaintext password at the given cost.
func HashPassword(plaintext string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether plaintext matches the stored bcrypt hash.
func CheckPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
