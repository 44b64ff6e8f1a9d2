package platform

// Identity resolves the account the helper runs as.
type Identity interface {
	CurrentUserSID() (string, error)
	CurrentUserName() (string, error)
}

type OSIdentity struct{}

func NewIdentity() *OSIdentity {
	return &OSIdentity{}
}
