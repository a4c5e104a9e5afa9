package domain

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Identity - пользователь из bearer токена identity provider
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role"`
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}
