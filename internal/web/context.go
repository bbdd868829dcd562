package web

import (
	"errors"
	"net/http"

	"github.com/openfoodfoundation/openfoodnetwork-sub012/internal/core"
)

// errNoUser is returned when a handler runs without the auth middleware.
var errNoUser = errors.New("no acting user on request")

// actingUser returns the user resolved by the auth middleware.
func actingUser(r *http.Request) (core.User, error) {
	u, ok := core.UserFromContext(r.Context())
	if !ok {
		return core.User{}, errNoUser
	}
	return u, nil
}
