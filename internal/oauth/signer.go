package oauth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"tenauth/pkg/config"
)

// Signer mints RS256 tokens and publishes the matching JWKS.
type Signer struct {
	issuer string
	key    jwk.Key
	public jwk.Set
}

// NewSigner loads the PEM key from cfg.SigningKeyFile, or generates an
// ephemeral 2048-bit key when none is configured (dev signing key; tokens
// do not survive restarts in that mode).
func NewSigner(cfg config.Config) (*Signer, error) {
	var raw *rsa.PrivateKey
	if cfg.SigningKeyFile != "" {
		b, err := os.ReadFile(cfg.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("signing key: %w", err)
		}
		raw, err = parseRSAKey(b)
		if err != nil {
			return nil, fmt.Errorf("signing key: %w", err)
		}
	} else {
		var err error
		raw, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, err
		}
	}
	key, err := jwk.FromRaw(raw)
	if err != nil {
		return nil, err
	}
	if err := jwk.AssignKeyID(key); err != nil {
		return nil, err
	}
	_ = key.Set(jwk.AlgorithmKey, jwa.RS256)
	_ = key.Set(jwk.KeyUsageKey, "sig")

	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return nil, err
	}
	public, err := jwk.PublicSetOf(set)
	if err != nil {
		return nil, err
	}
	return &Signer{issuer: cfg.Issuer, key: key, public: public}, nil
}

func parseRSAKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if k, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return k, nil
	}
	k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("not an RSA private key")
	}
	return rsaKey, nil
}

// PublicKeys returns the JWKS used to verify issued tokens.
func (s *Signer) PublicKeys() jwk.Set { return s.public }

// SignAccessToken emits the access-token view of the claim set.
func (s *Signer) SignAccessToken(cs ClaimSet, audience string, ttl time.Duration) (string, error) {
	return s.sign(cs.ForDestination(DestAccessToken), audience, ttl)
}

// SignIDToken emits the identity-token view of the claim set, addressed
// to the requesting client.
func (s *Signer) SignIDToken(cs ClaimSet, clientID string, ttl time.Duration) (string, error) {
	return s.sign(cs.ForDestination(DestIDToken), clientID, ttl)
}

func (s *Signer) sign(claims map[string]any, audience string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	b := jwt.NewBuilder().
		Issuer(s.issuer).
		Audience([]string{audience}).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		JwtID(uuid.NewString())
	for name, v := range claims {
		b = b.Claim(name, v)
	}
	tok, err := b.Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, s.key))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}
