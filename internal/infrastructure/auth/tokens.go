package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"formledger/internal/domain/access"
	"formledger/internal/errs"
)

const (
	issuerName      = "formledger"
	audienceAdmin   = "formledger-admin"
	audienceNonce   = "formledger-nonce"
	DefaultNonceTTL = 12 * time.Hour
	DefaultTokenTTL = 24 * time.Hour

	// ActionExportSubmissions is what export form nonces are bound to.
	ActionExportSubmissions = "export-submissions"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidNonce  = errors.New("invalid nonce")
	ErrMissingSecret = errors.New("auth.jwt_secret is required")
)

type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

type NonceClaims struct {
	Action string `json:"act"`
	jwt.RegisteredClaims
}

// Issuer signs and checks HS256 admin tokens and anti-forgery nonces with
// one shared secret. Audiences keep the two kinds apart.
type Issuer struct {
	secret   []byte
	nonceTTL time.Duration
	now      func() time.Time
}

func NewIssuer(secret string, nonceTTL time.Duration) *Issuer {
	if nonceTTL <= 0 {
		nonceTTL = DefaultNonceTTL
	}
	return &Issuer{
		secret:   []byte(secret),
		nonceTTL: nonceTTL,
		now:      time.Now,
	}
}

// IssueToken signs a bearer token for subject.
func (i *Issuer) IssueToken(subject string, roles []string, ttl time.Duration) (string, error) {
	if len(i.secret) == 0 {
		return "", ErrMissingSecret
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", errors.New("subject is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := i.now()
	claims := Claims{
		Roles:            roles,
		RegisteredClaims: i.registered(subject, audienceAdmin, now, ttl),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", errs.Wrap(err, "sign token")
	}
	return signed, nil
}

// Principal validates a bearer token.
func (i *Issuer) Principal(raw string) (access.Principal, error) {
	var claims Claims
	if err := i.parse(raw, audienceAdmin, &claims); err != nil {
		return access.Principal{}, errs.E(errs.CodeUnauthenticated, ErrInvalidToken, err.Error())
	}
	if claims.Subject == "" {
		return access.Principal{}, errs.E(errs.CodeUnauthenticated, ErrInvalidToken, "token has no subject")
	}
	return access.Principal{Subject: claims.Subject, Roles: claims.Roles}, nil
}

// IssueNonce binds a short-lived form token to subject and action.
func (i *Issuer) IssueNonce(subject string, action string) (string, error) {
	if len(i.secret) == 0 {
		return "", ErrMissingSecret
	}

	claims := NonceClaims{
		Action:           action,
		RegisteredClaims: i.registered(subject, audienceNonce, i.now(), i.nonceTTL),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", errs.Wrap(err, "sign nonce")
	}
	return signed, nil
}

// VerifyNonce fails with errs.CodeInvalidRequest unless raw was issued for
// the same subject and action and has not expired.
func (i *Issuer) VerifyNonce(raw string, subject string, action string) error {
	var claims NonceClaims
	if err := i.parse(raw, audienceNonce, &claims); err != nil {
		return errs.E(errs.CodeInvalidRequest, ErrInvalidNonce, err.Error())
	}
	if claims.Subject != subject || claims.Action != action {
		return errs.E(errs.CodeInvalidRequest, ErrInvalidNonce, "nonce bound to another subject or action")
	}
	return nil
}

func (i *Issuer) registered(subject string, audience string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuerName,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (i *Issuer) parse(raw string, audience string, claims jwt.Claims) error {
	if len(i.secret) == 0 {
		return ErrMissingSecret
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("token is empty")
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	},
		jwt.WithAudience(audience),
		jwt.WithIssuer(issuerName),
		jwt.WithTimeFunc(i.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return err
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
