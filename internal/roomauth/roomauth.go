// Package roomauth mints and verifies short-lived, room-scoped join credentials as HS256 JWTs.
package roomauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/huangsam/fluentgate/internal/contract"
)

// RoomGrant scopes a credential to one room.
type RoomGrant struct {
	Room         string `json:"room"`
	RoomJoin     bool   `json:"roomJoin"`
	CanSubscribe bool   `json:"canSubscribe"`
	CanPublish   bool   `json:"canPublish"`
	Hidden       bool   `json:"hidden"`
}

// Claims are the JWT claims of a join credential. The subject is the joining identity.
type Claims struct {
	jwt.RegisteredClaims
	Grant RoomGrant `json:"video"`
}

// Issuer signs join credentials with a shared API secret.
type Issuer struct {
	apiKey string
	secret []byte
	now    func() time.Time
}

var _ contract.CredentialIssuer = &Issuer{} // Compile-time check

// NewIssuer creates an Issuer. Both the key and the secret are required.
func NewIssuer(apiKey, apiSecret string) (*Issuer, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New("room API key and secret are required to issue join credentials")
	}
	return &Issuer{apiKey: apiKey, secret: []byte(apiSecret), now: time.Now}, nil
}

// IssueJoinToken returns a credential that lets identity subscribe to room until ttl elapses.
// The monitor never publishes, so the grant is subscribe-only and hidden from other participants.
func (i *Issuer) IssueJoinToken(room, identity string, ttl time.Duration) (string, error) {
	if room == "" || identity == "" {
		return "", errors.New("room and identity are required")
	}
	if ttl <= 0 {
		ttl = contract.DefaultCredentialTTL
	}
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.apiKey,
			Subject:   identity,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Grant: RoomGrant{
			Room:         room,
			RoomJoin:     true,
			CanSubscribe: true,
			Hidden:       true,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign join credential: %w", err)
	}
	return token, nil
}

// Verify parses a credential signed by this issuer and checks it grants access to room.
func (i *Issuer) Verify(token, room string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.apiKey),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid join credential: %w", err)
	}
	if !claims.Grant.RoomJoin || claims.Grant.Room != room {
		return nil, fmt.Errorf("join credential does not grant room %q", room)
	}
	return claims, nil
}
