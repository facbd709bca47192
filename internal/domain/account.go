package domain

// AccountRole is the role recorded on a login account.
type AccountRole string

const (
	AccountRoleAdmin AccountRole = "admin"
	AccountRoleUser  AccountRole = "user"
)

// Account models a login for the session gate.
type Account struct {
	Username     string
	PasswordHash string
	Role         AccountRole
}
