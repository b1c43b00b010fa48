package auth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPayload is what local tooling needs to stand in for the identity service.
type TokenPayload struct {
	UserID   int64
	Audience string
	JTI      string
}

// Claims is the bearer token issued by the identity service. Party authority is
// never carried in the token; it is loaded per party on each command.
type Claims struct {
	UserID int64 `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the caller's user id, preferring the user_id claim and falling
// back to a numeric subject.
func (c *Claims) Identity() (int64, error) {
	if c.UserID > 0 {
		return c.UserID, nil
	}
	sub := strings.TrimSpace(c.Subject)
	if sub == "" {
		return 0, fmt.Errorf("token carries no user identity")
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("token subject %q is not a user id", sub)
	}
	return id, nil
}
