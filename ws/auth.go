package ws

import (
	"errors"
	"fmt"

	"roastmarket_backend/internal/auth"
	"roastmarket_backend/pkg/wsproto"
)

// ErrAuthenticationFailed closes the connection with a policy violation.
var ErrAuthenticationFailed = errors.New("ws: authentication failed")

// Identity is a verified user bound to a connection.
type Identity struct {
	UserID string
	Role   string
}

type TokenVerifier interface {
	ParseToken(token string) (*auth.Claims, error)
}

// Authenticator resolves the identity of an authenticate frame. The user
// id always comes from a verified credential: the HTTP session captured
// at upgrade time, or else the token carried in the frame. A userId in
// the frame is only checked against it.
type Authenticator struct {
	verifier TokenVerifier
}

func NewAuthenticator(verifier TokenVerifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

func (a *Authenticator) Resolve(session *Identity, frame wsproto.Authenticate) (Identity, error) {
	var id Identity
	switch {
	case session != nil && session.UserID != "":
		id = *session
	case frame.Token != "" && a.verifier != nil:
		claims, err := a.verifier.ParseToken(frame.Token)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
		}
		id = Identity{UserID: claims.UserID, Role: claims.Role}
	default:
		return Identity{}, fmt.Errorf("%w: no verified session", ErrAuthenticationFailed)
	}

	if frame.UserID != "" && frame.UserID != id.UserID {
		return Identity{}, fmt.Errorf("%w: asserted user does not match session", ErrAuthenticationFailed)
	}
	return id, nil
}
