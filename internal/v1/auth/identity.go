// Package auth resolves connection handshakes into stable identities and
// verifies access tokens. Authentication failures never reject a
// connection; they demote it to the next weaker identity tier.
package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/quickmate/server/internal/v1/logging"
)

// Kind is the identity tier of a connection.
type Kind string

const (
	// KindUser is a verified account holder; the subject is the user id.
	KindUser Kind = "user"
	// KindGuest is a self-asserted guest; the subject is the guest id.
	KindGuest Kind = "guest"
	// KindConnection is the fallback tier; the subject is the connection
	// id, so the identity dies with the socket.
	KindConnection Kind = "connection"
)

// Identity is the resolved identity of a connection.
type Identity struct {
	Kind    Kind
	Subject string
	// Name is a display-name hint from the user directory; empty for
	// guests and anonymous connections.
	Name string
}

// Key returns the stable registry key. Guest subjects are prefixed so a
// guest can never collide with a real user id.
func (i Identity) Key() string {
	if i.Kind == KindGuest {
		return "guest:" + i.Subject
	}
	return i.Subject
}

// Reconnectable reports whether this identity can survive its socket.
// Connection-tier identities cannot: there is nothing stable to rebind.
func (i Identity) Reconnectable() bool { return i.Kind != KindConnection }

// UserDirectory looks up account display names. Implementations are
// expected to be safe for concurrent use.
type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Resolver turns handshake credentials into an Identity.
type Resolver struct {
	validator *Validator
	directory UserDirectory
}

// NewResolver builds a resolver. Both arguments may be nil: without a
// validator all tokens demote, without a directory names stay empty.
func NewResolver(v *Validator, dir UserDirectory) *Resolver {
	return &Resolver{validator: v, directory: dir}
}

const maxGuestIDLen = 64

// Resolve picks the strongest identity the handshake supports: a valid
// access token wins, then a well-formed guest id, then the connection id.
func (r *Resolver) Resolve(ctx context.Context, token, guestID, connID string) Identity {
	if token != "" && r.validator != nil {
		userID, err := r.validator.Validate(token)
		if err == nil {
			id := Identity{Kind: KindUser, Subject: userID}
			if r.directory != nil {
				if name, derr := r.directory.DisplayName(ctx, userID); derr == nil {
					id.Name = name
				}
			}
			return id
		}
		logging.Debug(ctx, "access token rejected, demoting",
			zap.String("connection_id", connID), zap.Error(err))
	}

	guestID = strings.TrimSpace(guestID)
	if guestID != "" && len(guestID) <= maxGuestIDLen {
		return Identity{Kind: KindGuest, Subject: guestID}
	}

	return Identity{Kind: KindConnection, Subject: connID}
}

// OriginChecker builds the websocket origin policy from the CORS
// allow-list. A "*" entry disables the check. Requests without an Origin
// header (non-browser clients) are allowed.
func OriginChecker(allowed []string) func(*http.Request) bool {
	allowAll := false
	hosts := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		a = strings.TrimSpace(a)
		if a == "*" {
			allowAll = true
			continue
		}
		if u, err := url.Parse(a); err == nil && u.Host != "" {
			hosts[strings.ToLower(u.Host)] = struct{}{}
		}
	}
	return func(req *http.Request) bool {
		if allowAll {
			return true
		}
		origin := req.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := hosts[strings.ToLower(u.Host)]
		return ok
	}
}
