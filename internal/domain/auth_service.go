package domain

import (
	"crypto/subtle"

	"github.com/Vovarama1992/storyreels/internal/ports"
	"golang.org/x/crypto/bcrypt"
)

type authService struct {
	secret string
	hash   []byte
}

// NewAuthService compares against bcryptHash when it is set, otherwise against
// the plain shared secret.
func NewAuthService(secret, bcryptHash string) ports.AuthService {
	return &authService{
		secret: secret,
		hash:   []byte(bcryptHash),
	}
}

func (s *authService) CheckPassword(password string) bool {
	if len(s.hash) > 0 {
		return bcrypt.CompareHashAndPassword(s.hash, []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.secret)) == 1
}
