package redact

import (
	"context"
	"regexp"
	"strings"
)

// Redactor replaces personal data in text. Implementations are black boxes,
// the rest of the pipeline only sees the redacted text.
type Redactor interface {
	Redact(ctx context.Context, text string) (string, error)
}

// NoopRedactor returns text unchanged
type NoopRedactor struct{}

func (NoopRedactor) Redact(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return text, nil
}

// Pattern replaces every match of Expression with Placeholder
type Pattern struct {
	Name        string
	Expression  *regexp.Regexp
	Placeholder string
	// Valid optionally rejects matches, e.g. failing a checksum.
	Valid func(match string) bool
}

// DefaultPatterns covers e-mail addresses, IBANs, payment cards, IPv4
// addresses and phone numbers. Order matters, longer digit runs come first.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Name:        "email",
			Expression:  regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`),
			Placeholder: "<EMAIL_ADDRESS>",
		},
		{
			Name:        "iban",
			Expression:  regexp.MustCompile(`\b[A-Z]{2}[0-9]{2}(?: ?[A-Z0-9]{4}){2,7}(?: ?[A-Z0-9]{1,4})?\b`),
			Placeholder: "<IBAN_CODE>",
		},
		{
			Name:        "credit_card",
			Expression:  regexp.MustCompile(`\b(?:[0-9][ \-]?){12,18}[0-9]\b`),
			Placeholder: "<CREDIT_CARD>",
			Valid:       luhn,
		},
		{
			Name:        "ip_address",
			Expression:  regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\.){3}(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\b`),
			Placeholder: "<IP_ADDRESS>",
		},
		{
			Name:        "phone_number",
			Expression:  regexp.MustCompile(`(?:\+[0-9]{1,3}[ .\-]?)?(?:\([0-9]{1,4}\)[ .\-]?)?[0-9]{2,4}[ .\-][0-9]{3,4}[ .\-]?[0-9]{2,4}\b`),
			Placeholder: "<PHONE_NUMBER>",
		},
	}
}

// PatternRedactor redacts text with regular expressions
type PatternRedactor struct {
	patterns []Pattern
}

// NewPatternRedactor uses DefaultPatterns when no patterns are given
func NewPatternRedactor(patterns ...Pattern) *PatternRedactor {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	return &PatternRedactor{patterns: patterns}
}

func (r *PatternRedactor) Redact(ctx context.Context, text string) (string, error) {
	for _, p := range r.patterns {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text = p.Expression.ReplaceAllStringFunc(text, func(match string) string {
			if p.Valid != nil && !p.Valid(match) {
				return match
			}
			return p.Placeholder
		})
	}
	return text, nil
}

// luhn validates a card number, separators are ignored
func luhn(number string) bool {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if len(digits) < 13 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
