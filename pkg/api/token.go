package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token is a bearer credential returned by login. It is valid only for the
// call sequence that fetched it.
type Token struct {
	Value string `json:"token"`
	Type  string `json:"tokenType"`
}

// Authorization renders the header value, e.g. "Bearer abc"
func (t Token) Authorization() string {
	return t.Type + " " + t.Value
}

// Expiry returns the exp claim when the token is a JWT. The signature is not
// checked: the value is only informational.
func (t Token) Expiry() (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(t.Value, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
