package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
	"satnam/pkg/platform/middleware/auth"
)

// Claims identifies the coordinator and session a request acts for.
type Claims struct {
	CoordinatorID string `json:"coordinator_id"`
	SessionID     string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTService mints the short-lived bearer tokens sent to the onboarding
// backend and validates tokens presented to the ops API.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
}

func NewJWTService(signingKey, issuer, audience string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
	}
}

// GenerateToken signs an HS256 token for coordinator, optionally scoped to a session.
func (s *JWTService) GenerateToken(coordinator id.UserID, session id.SessionID, now time.Time) (string, error) {
	claims := Claims{
		CoordinatorID: coordinator.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   coordinator.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	}
	if !session.IsNil() {
		claims.SessionID = session.String()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

// ValidateToken parses and verifies a token minted by GenerateToken.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}

// CoordinatorClaims validates tokenString for the ops API auth middleware.
func (s *JWTService) CoordinatorClaims(tokenString string) (*auth.JWTClaims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &auth.JWTClaims{CoordinatorID: claims.CoordinatorID, SessionID: claims.SessionID}, nil
}
