package dto

// Credentials only carries the admin password so the login handler never binds anything else
type Credentials struct {
	Password string `json:"password"`
}
