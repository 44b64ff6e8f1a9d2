//go:build !windows

package platform

import (
	"os/user"

	"github.com/stranslate/host/internal/hosterr"
)

// CurrentUserSID has no equivalent outside Windows; callers fall back to
// their configured default.
func (OSIdentity) CurrentUserSID() (string, error) {
	return "", hosterr.NewUnresolvable("user SID", "process token")
}

func (OSIdentity) CurrentUserName() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", hosterr.NewOSOperationFailed(err, "lookup current user", err.Error())
	}
	return u.Username, nil
}
