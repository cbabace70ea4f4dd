// Package claims decodes the payload of a BioVerify access token into a
// typed claim set. The decode is deliberately unverified: the backend is the
// security boundary, the client reads role/tenant claims for routing and
// display only.
package claims

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// ErrInvalidToken is returned for any token the decoder cannot make sense
// of: malformed segments, malformed JSON, or missing required claims.
// Callers must treat it identically to "no session".
var ErrInvalidToken = errors.New("invalid access token")

// Role is the backend role claim. The five values below are the complete
// set issued by the BioVerify backend.
type Role string

const (
	RoleGlobalSuperAdmin Role = "GLOBAL_SUPER_ADMIN"
	RoleTenantAdmin      Role = "TENANT_ADMIN"
	RoleAgent            Role = "AGENT"
	RoleReviewer         Role = "REVIEWER"
	RoleSelfServiceUser  Role = "SELF_SERVICE_USER"
)

// ClaimSet is the decoded access token payload. It is derived state:
// recomputed from the current access token on demand, never stored.
type ClaimSet struct {
	Subject   string // User ID
	Role      Role   // Role for routing and display
	TenantID  string // Multi-tenant isolation, may be empty
	Status    string // Account status, may be empty
	IssuedAt  int64  // Seconds since epoch
	ExpiresAt int64  // Seconds since epoch
}

// Decode parses the claims segment of an access token without verifying the
// signature. It never panics; any structural problem maps to ErrInvalidToken.
func Decode(raw string) (*ClaimSet, error) {
	if raw == "" {
		return nil, errors.Wrap(ErrInvalidToken, "[Decode] empty token")
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}

	mapClaims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.Wrap(ErrInvalidToken, "[Decode] error extracting claims")
	}

	sub, _ := mapClaims["sub"].(string)
	role, _ := mapClaims["role"].(string)
	tenantID, _ := mapClaims["tenantId"].(string)
	status, _ := mapClaims["status"].(string)
	iat, _ := mapClaims["iat"].(float64)
	exp, expOK := mapClaims["exp"].(float64)

	// A token without a subject or expiry is not a session credential.
	if sub == "" || !expOK {
		return nil, errors.Wrap(ErrInvalidToken, "[Decode] missing required claims")
	}

	return &ClaimSet{
		Subject:   sub,
		Role:      Role(role),
		TenantID:  tenantID,
		Status:    status,
		IssuedAt:  int64(iat),
		ExpiresAt: int64(exp),
	}, nil
}

// Expired reports whether the claim set's expiry has passed.
func (c *ClaimSet) Expired() bool {
	return NowTimeFunc().Unix() >= c.ExpiresAt
}

// Expired reports whether a raw access token has expired. An undecodable
// token is expired: the decoder fails closed.
func Expired(raw string) bool {
	c, err := Decode(raw)
	if err != nil {
		return true
	}
	return c.Expired()
}
