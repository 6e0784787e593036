package middleware

import (
	"net/http"
	"strings"

	"github.com/JaroldEnderez/Vanity/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	IdentityKey = "identity"

	roleOwner  = "owner"
	roleBranch = "branch"
)

// JWTClaims are the custom claims embedded in every access token.
// BranchID is only present on branch tokens.
type JWTClaims struct {
	AccountID string  `json:"account_id"`
	Role      string  `json:"role"`
	BranchID  *string `json:"branch_id,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller: either a BranchIdentity or an
// OwnerIdentity. Branch-only fields do not exist on the owner variant.
type Identity interface {
	Account() uuid.UUID
	isIdentity()
}

type BranchIdentity struct {
	AccountID uuid.UUID
	BranchID  uuid.UUID
}

func (b BranchIdentity) Account() uuid.UUID { return b.AccountID }
func (BranchIdentity) isIdentity()          {}

type OwnerIdentity struct {
	AccountID uuid.UUID
}

func (o OwnerIdentity) Account() uuid.UUID { return o.AccountID }
func (OwnerIdentity) isIdentity()          {}

// JWTAuth validates the Bearer token and stores the caller's Identity.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("invalid or expired token"))
			return
		}

		id, ok := claims.identity()
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("invalid or expired token"))
			return
		}
		c.Set(IdentityKey, id)
		c.Next()
	}
}

func (cl *JWTClaims) identity() (Identity, bool) {
	account, err := uuid.Parse(cl.AccountID)
	if err != nil {
		return nil, false
	}
	switch cl.Role {
	case roleOwner:
		return OwnerIdentity{AccountID: account}, true
	case roleBranch:
		if cl.BranchID == nil {
			return nil, false
		}
		branch, err := uuid.Parse(*cl.BranchID)
		if err != nil {
			return nil, false
		}
		return BranchIdentity{AccountID: account, BranchID: branch}, true
	}
	return nil, false
}

// RequireBranch lets through branch accounts only. Any other caller has no
// branch to scope to and gets a 401.
func RequireBranch() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetIdentity(c).(BranchIdentity); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("branch account required"))
			return
		}
		c.Next()
	}
}

// RequireOwner rejects authenticated callers that are not owners.
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch GetIdentity(c).(type) {
		case OwnerIdentity:
			c.Next()
		case nil:
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("owner access required"))
		}
	}
}

// GetIdentity returns the caller set by JWTAuth, or nil.
func GetIdentity(c *gin.Context) Identity {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil
	}
	id, _ := v.(Identity)
	return id
}

// BranchID returns the caller's branch when the caller is a branch account.
func BranchID(c *gin.Context) (uuid.UUID, bool) {
	b, ok := GetIdentity(c).(BranchIdentity)
	return b.BranchID, ok
}
