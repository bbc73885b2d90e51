package totp

import (
	"fmt"
	"net/url"
	"strings"
)

// Params describes a provisioning URI.
type Params struct {
	Secret      string // Base32-encoded secret (required)
	AccountName string // Label shown in the authenticator app, e.g. an email (required)
	Issuer      string // Service name (required)
}

// Validate ensures all required fields are present.
func (p Params) Validate() error {
	if p.Secret == "" {
		return ErrMissingSecret
	}
	if strings.Trim(p.Secret, "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567") != "" {
		return ErrInvalidSecret
	}
	if p.AccountName == "" {
		return ErrMissingAccountName
	}
	if p.Issuer == "" {
		return ErrMissingIssuer
	}
	if strings.Contains(p.Issuer, ":") || strings.Contains(p.AccountName, ":") {
		return ErrInvalidLabel
	}
	return nil
}

// URI builds the otpauth:// URI consumed by authenticator apps.
// Query parameters keep a fixed order:
//
//	otpauth://totp/{issuer}:{label}?secret=…&issuer=…&algorithm=SHA1&digits=6&period=30
func URI(p Params) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	return fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&issuer=%s&algorithm=%s&digits=%d&period=%d",
		url.PathEscape(p.Issuer),
		url.PathEscape(p.AccountName),
		p.Secret,
		url.QueryEscape(p.Issuer),
		Algorithm,
		Digits,
		Period,
	), nil
}
