// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

// Package registration loads and bootstraps the appservice
// registration record. The registration is the shared contract between
// the bridge and the homeserver: the identity the bridge runs under,
// the two bearer secrets (as_token for outbound calls, hs_token for
// authenticating inbound appservice traffic), and the namespaces the
// bridge claims.
//
// The record is stored as a YAML file in the format Synapse and
// Conduit consume directly. LoadOrCreate reads an existing file or, on
// first start, writes a fresh registration with random tokens so the
// operator can hand the same file to the homeserver.
//
// The rest of the bridge consumes the record read-only.
package registration

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// AppserviceID is the identity recorded in freshly created
// registrations.
const AppserviceID = "matrix-free-stuff"

// SenderLocalpart is the localpart of the Matrix account the bridge
// operates as.
const SenderLocalpart = "free-stuff"

// tokenLength is the length of generated as_token and hs_token values.
const tokenLength = 64

// Registration is the appservice registration record, in the YAML
// shape homeservers consume.
type Registration struct {
	// ID uniquely identifies this appservice to the homeserver.
	ID string `yaml:"id" validate:"required"`

	// URL is the base URL the homeserver uses to reach the bridge.
	// May be empty until the operator fills it in.
	URL string `yaml:"url"`

	// ASToken authenticates the bridge's outbound calls to the
	// homeserver.
	ASToken string `yaml:"as_token" validate:"required"`

	// HSToken authenticates the homeserver's inbound calls to the
	// bridge. Compared against the bearer credential on every
	// appservice request.
	HSToken string `yaml:"hs_token" validate:"required"`

	// SenderLocalpart is the localpart of the bridge's own account.
	SenderLocalpart string `yaml:"sender_localpart" validate:"required"`

	// Namespaces lists the user, alias, and room patterns the bridge
	// claims.
	Namespaces Namespaces `yaml:"namespaces"`

	// RateLimited, when set, exempts the bridge from homeserver rate
	// limits (false) or subjects it to them (true).
	RateLimited *bool `yaml:"rate_limited,omitempty"`

	// Protocols lists third-party protocol identifiers the bridge
	// provides, if any.
	Protocols []string `yaml:"protocols,omitempty"`
}

// Namespaces holds the namespace-matching rules of a registration.
type Namespaces struct {
	Users   []Namespace `yaml:"users,omitempty"`
	Aliases []Namespace `yaml:"aliases,omitempty"`
	Rooms   []Namespace `yaml:"rooms,omitempty"`
}

// Namespace is a single namespace-matching rule.
type Namespace struct {
	// Exclusive claims the matched IDs for this appservice alone.
	Exclusive bool `yaml:"exclusive"`

	// Regex is the pattern matched against full Matrix IDs.
	Regex string `yaml:"regex" validate:"required"`
}

// Load reads and validates a registration file.
func Load(path string) (*Registration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registration: reading %s: %w", path, err)
	}

	var reg Registration
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("registration: parsing %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("registration: %s: %w", path, err)
	}
	return &reg, nil
}

// LoadOrCreate reads the registration file at path, or creates a
// fresh registration (random tokens, default identity) in its place
// when the file does not exist. Parent directories are created as
// needed.
func LoadOrCreate(path string, logger *slog.Logger) (*Registration, error) {
	reg, err := Load(path)
	switch {
	case err == nil:
		logger.Debug("loaded registration from file", "path", path)
		return reg, nil
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("registration file missing; creating a new registration in its place", "path", path)
	default:
		return nil, err
	}

	reg, err = New()
	if err != nil {
		return nil, err
	}

	if err := reg.WriteFile(path); err != nil {
		return nil, err
	}
	logger.Info("created registration file", "path", path)
	return reg, nil
}

// New generates a fresh registration with random tokens and the
// default bridge identity.
func New() (*Registration, error) {
	asToken, err := randomToken(tokenLength)
	if err != nil {
		return nil, fmt.Errorf("registration: generating as_token: %w", err)
	}
	hsToken, err := randomToken(tokenLength)
	if err != nil {
		return nil, fmt.Errorf("registration: generating hs_token: %w", err)
	}

	return &Registration{
		ID:              AppserviceID,
		ASToken:         asToken,
		HSToken:         hsToken,
		SenderLocalpart: SenderLocalpart,
	}, nil
}

// WriteFile serializes the registration to YAML at path, creating
// parent directories as needed. The file is written with mode 0600 —
// it contains both bearer secrets.
func (r *Registration) WriteFile(path string) error {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("registration: resolving %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(absolute), 0o755); err != nil {
		return fmt.Errorf("registration: creating directories for %s: %w", absolute, err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("registration: serializing: %w", err)
	}
	if err := os.WriteFile(absolute, data, 0o600); err != nil {
		return fmt.Errorf("registration: writing %s: %w", absolute, err)
	}
	return nil
}

// Validate checks the structural invariants of the record using the
// struct tags above.
func (r *Registration) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(r); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			first := fieldErrors[0]
			return fmt.Errorf("invalid registration: field %s failed %q", first.Namespace(), first.Tag())
		}
		return fmt.Errorf("invalid registration: %w", err)
	}
	return nil
}

// tokenAlphabet is the character set for generated bearer tokens;
// homeservers treat tokens as opaque strings.
const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// randomToken returns a cryptographically random alphanumeric string
// of the given length. Random bytes at or above the largest multiple
// of the alphabet size are rejected, so every character is equally
// likely — a plain modulo would skew toward the alphabet's start.
func randomToken(length int) (string, error) {
	const limit = byte(256 - 256%len(tokenAlphabet))

	token := make([]byte, 0, length)
	buffer := make([]byte, length)
	for len(token) < length {
		if _, err := rand.Read(buffer); err != nil {
			return "", err
		}
		for _, b := range buffer {
			if b >= limit {
				continue
			}
			token = append(token, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(token) == length {
				break
			}
		}
	}
	return string(token), nil
}
