package api

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
	"github.com/relloyd/obspipe/constants"
)

// Authenticator exchanges API credentials for a Session.
type Authenticator struct {
	t       *transport
	mu      sync.RWMutex
	session Session
}

func NewAuthenticator(cfg *ClientConfig) (*Authenticator, error) {
	t, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}
	return &Authenticator{t: t}, nil
}

// Authenticate makes one call to the API and keeps the resulting session.
// It is never retried.
func (a *Authenticator) Authenticate(ctx context.Context, loginID string, password string) (Session, error) {
	b, err := a.t.call(ctx, EndpointAuthenticate, http.MethodPost, constants.ApiPathAuthenticate, nil,
		authRequest{UserLogonID: loginID, Password: password}, false)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return Session{}, &AuthError{StatusCode: se.StatusCode, Err: err}
		}
		return Session{}, &AuthError{Err: err}
	}
	var resp authResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return Session{}, &AuthError{Err: err}
	}
	s := Session{Token: resp.Token, UserID: resp.userID()}
	if !s.valid() {
		return Session{}, &AuthError{Err: errors.New("response is missing token or user_id")}
	}
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()
	a.t.log.Info("authenticated as user_id ", s.UserID)
	return s, nil
}

// Session returns the session from the last successful Authenticate.
func (a *Authenticator) Session() (Session, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.session.valid() {
		return Session{}, ErrNotAuthenticated
	}
	return a.session, nil
}

// Headers returns the auth headers or ErrNotAuthenticated if Authenticate has not succeeded.
func (a *Authenticator) Headers() (http.Header, error) {
	s, err := a.Session()
	if err != nil {
		return nil, err
	}
	return s.Headers(), nil
}
