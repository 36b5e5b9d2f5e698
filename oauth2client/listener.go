package oauth2client

import "github.com/AmmannChristian/go-apiclient/credential"

// Listener observes credential changes. Callbacks run while the manager holds its state lock,
// so they must not call SetListener or Invalidate.
type Listener interface {
	// OnCredentialRefreshed is called once for every credential stored by a successful grant.
	OnCredentialRefreshed(c *credential.Credential)

	// OnCredentialInvalid is called when the server rejected dead, which is never nil. A live
	// return value becomes the current credential; nil leaves the manager without one.
	OnCredentialInvalid(dead *credential.Credential) *credential.Credential
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are ignored.
type ListenerFuncs struct {
	Refreshed func(c *credential.Credential)
	Invalid   func(dead *credential.Credential) *credential.Credential
}

// OnCredentialRefreshed calls Refreshed if set.
func (f ListenerFuncs) OnCredentialRefreshed(c *credential.Credential) {
	if f.Refreshed != nil {
		f.Refreshed(c)
	}
}

// OnCredentialInvalid calls Invalid if set.
func (f ListenerFuncs) OnCredentialInvalid(dead *credential.Credential) *credential.Credential {
	if f.Invalid == nil {
		return nil
	}
	return f.Invalid(dead)
}
