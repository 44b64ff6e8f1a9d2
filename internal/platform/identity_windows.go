//go:build windows

package platform

import (
	"github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"

	"github.com/stranslate/host/internal/hosterr"
)

// CurrentUserSID reads the user SID from the process token.
func (OSIdentity) CurrentUserSID() (string, error) {
	tokenUser, err := windows.GetCurrentProcessToken().GetTokenUser()
	if err != nil {
		return "", hosterr.NewOSOperationFailed(err, "GetTokenUser", err.Error())
	}
	return tokenUser.User.Sid.String(), nil
}

// CurrentUserName returns DOMAIN\user for the token SID.
func (id OSIdentity) CurrentUserName() (string, error) {
	sid, err := id.CurrentUserSID()
	if err != nil {
		return "", err
	}
	name, err := winio.LookupNameBySid(sid)
	if err != nil {
		return "", hosterr.NewOSOperationFailed(err, "LookupNameBySid "+sid, err.Error())
	}
	return name, nil
}
