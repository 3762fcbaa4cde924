package auth

import (
	"context"
	"crypto/subtle"
	"errors"
)

// bearerAuthenticator wraps a user-provided validation function.
type bearerAuthenticator struct {
	validateFunc func(token string) (identity string, err error)
}

// BearerAuth creates an Authenticator from a validation function.
//
// Example:
//
//	auth := BearerAuth(func(token string) (string, error) {
//	    user, err := validateWithMyBackend(token)
//	    if err != nil {
//	        return "", auth.ErrUnauthenticated
//	    }
//	    return user.ID, nil
//	})
func BearerAuth(validateFunc func(token string) (identity string, err error)) Authenticator {
	return &bearerAuthenticator{
		validateFunc: validateFunc,
	}
}

// Authenticate implements Authenticator for bearerAuthenticator.
func (b *bearerAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	return b.validateFunc(token)
}

// StaticTokens returns an Authenticator over a fixed token to identity table,
// as configured under auth.tokens.
func StaticTokens(tokens map[string]string) Authenticator {
	table := make([]staticToken, 0, len(tokens))
	for tok, id := range tokens {
		table = append(table, staticToken{token: []byte(tok), identity: id})
	}
	return BearerAuth(func(token string) (string, error) {
		// every entry is compared so timing does not leak the match position
		var identity string
		found := false
		for _, e := range table {
			if subtle.ConstantTimeCompare(e.token, []byte(token)) == 1 {
				identity, found = e.identity, true
			}
		}
		if !found {
			return "", errors.New("unknown token")
		}
		return identity, nil
	})
}

type staticToken struct {
	token    []byte
	identity string
}
