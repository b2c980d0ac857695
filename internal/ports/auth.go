package ports

type AuthService interface {
	CheckPassword(password string) bool
}
