package jwt

import (
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims carried by access tokens.
const (
	ClaimUserID  = "user_id"
	ClaimIsAdmin = "is_admin"
	ClaimType    = "type"

	TokenTypeAccess = "access"
)

type Service interface {
	GenerateAccessToken(userID string, isAdmin bool) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpiration time.Duration
	tokenAuth             *jwtauth.JWTAuth
	now                   func() time.Time
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// NewJWTService signs HS256 tokens with secretKey. accessTokenExpirationTime
// is a time.ParseDuration string.
func NewJWTService(secretKey string, accessTokenExpirationTime string) (*JWTService, error) {
	exp, err := time.ParseDuration(accessTokenExpirationTime)
	if err != nil {
		return nil, err
	}
	return &JWTService{
		accessTokenExpiration: exp,
		tokenAuth:             jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:                   time.Now,
	}, nil
}

func (j *JWTService) GenerateAccessToken(userID string, isAdmin bool) (token string, expiresAt int64, err error) {
	expiresAt = j.now().Add(j.accessTokenExpiration).Unix()

	claims := map[string]interface{}{
		ClaimUserID:  userID,
		ClaimIsAdmin: isAdmin,
		ClaimType:    TokenTypeAccess,
		"exp":        expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// UserID extracts the user id claim, reporting false when absent.
func UserID(claims map[string]interface{}) (string, bool) {
	id, ok := claims[ClaimUserID].(string)
	return id, ok && id != ""
}
