package password

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Policy validates candidate passwords before they are hashed.
type Policy struct {
	MinLength int
	MaxLength int

	similarityThreshold float64
	common              map[string]struct{}
}

// NewPolicy creates a policy with the given minimum length (values below
// one fall back to 8).
func NewPolicy(minLength int) *Policy {
	if minLength < 1 {
		minLength = 8
	}
	p := &Policy{
		MinLength:           minLength,
		MaxLength:           128,
		similarityThreshold: 0.8,
		common:              make(map[string]struct{}, len(commonPasswords)),
	}
	for _, pwd := range commonPasswords {
		p.common[strings.ToLower(pwd)] = struct{}{}
	}
	return p
}

// Validate checks a candidate password. Identity values already known to
// an attacker (email, username) are rejected as password material when
// the candidate contains or closely resembles them.
func (p *Policy) Validate(candidate string, identity ...string) error {
	if len(candidate) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters long", p.MinLength)
	}
	if len(candidate) > p.MaxLength {
		return fmt.Errorf("password must be at most %d characters long", p.MaxLength)
	}
	if _, ok := p.common[strings.ToLower(candidate)]; ok {
		return errors.New("password is too common")
	}
	for _, id := range identity {
		for _, part := range identityParts(id) {
			if p.tooSimilar(candidate, part) {
				return errors.New("password is too similar to account details")
			}
		}
	}
	return nil
}

// identityParts splits an identity value into the fragments worth
// checking: the whole value and, for an email, its local part.
func identityParts(id string) []string {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return nil
	}
	parts := []string{id}
	if at := strings.IndexByte(id, '@'); at > 0 {
		parts = append(parts, id[:at])
	}
	return parts
}

func (p *Policy) tooSimilar(candidate, part string) bool {
	if len(part) < 3 {
		return false
	}
	cand := strings.ToLower(candidate)
	if strings.Contains(cand, part) {
		return true
	}
	distance := levenshtein.ComputeDistance(cand, part)
	maxLen := math.Max(float64(len(cand)), float64(len(part)))
	if maxLen == 0 {
		return false
	}
	return 1.0-float64(distance)/maxLen >= p.similarityThreshold
}

var commonPasswords = []string{
	"password", "123456", "password123", "admin", "qwerty",
	"123456789", "12345678", "12345", "1234567890", "1234567",
	"password1", "123123", "abc123", "Password1", "password!",
	"welcome", "monkey", "dragon", "master", "hello",
	"login", "princess", "letmein", "starwars", "iloveyou",
	"sunshine", "trustno1", "football", "baseball", "superman",
}
