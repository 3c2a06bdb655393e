package usecase

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"

	"github.com/V4T54L/service-portal/internal/domain"
)

const (
	nationalIDLength = 10
	phoneMinDigits   = 9
	phoneMaxDigits   = 15
	codeMinLength    = 3
)

// Validation messages shown next to the offending field.
const (
	MsgNoIdentifier     = "Please fill in at least one lookup field."
	MsgNationalIDLength = "National ID must be 10 digits."
	MsgPhoneLength      = "Invalid phone number (9-15 digits)."
	MsgValueTooShort    = "Value is too short."
	MsgInvalidEmail     = "Invalid email address."
	MsgPasswordTooShort = "Password must be at least 8 characters."
	MsgPasswordRequired = "Enter your phone number and password."
)

// digitFields are reduced to ASCII digits; the rest are trimmed.
var digitFields = map[domain.Field]bool{
	domain.FieldNationalID: true,
	domain.FieldPhone:      true,
}

func digitTransformer() transform.Transformer {
	return transform.Chain(
		width.Fold,
		runes.Map(func(r rune) rune {
			switch {
			case r >= '٠' && r <= '٩':
				return '0' + (r - '٠')
			case r >= '۰' && r <= '۹':
				return '0' + (r - '۰')
			}
			return r
		}),
		runes.Remove(runes.Predicate(func(r rune) bool { return r < '0' || r > '9' })),
	)
}

// Digits keeps only the digits of s, folding Arabic-Indic and full-width
// digits to ASCII.
func Digits(s string) string {
	out, _, err := transform.String(digitTransformer(), s)
	if err != nil {
		return ""
	}
	return out
}

// NormalizeIdentifiers cleans raw form input. Unknown keys are ignored and
// every known field is present in the result.
func NormalizeIdentifiers(raw map[string]string) domain.Identifiers {
	q := make(domain.Identifiers, len(domain.Fields))
	for _, f := range domain.Fields {
		v := raw[string(f)]
		if digitFields[f] {
			q[f] = Digits(v)
		} else {
			q[f] = strings.TrimSpace(v)
		}
	}
	return q
}

// ValidateIdentifiers returns nil when q can be matched against the store.
func ValidateIdentifiers(q domain.Identifiers) domain.ValidationErrors {
	errs := domain.ValidationErrors{}

	if q.IsEmpty() {
		errs[domain.FormErrorKey] = MsgNoIdentifier
		return errs
	}

	if v := q.Get(domain.FieldNationalID); v != "" && len(v) != nationalIDLength {
		errs[string(domain.FieldNationalID)] = MsgNationalIDLength
	}
	if v := q.Get(domain.FieldPhone); v != "" && !validPhone(v) {
		errs[string(domain.FieldPhone)] = MsgPhoneLength
	}
	for _, f := range []domain.Field{domain.FieldMeterNumber, domain.FieldAccountNumber, domain.FieldUnitCode} {
		if v := q.Get(f); v != "" && utf8.RuneCountInString(v) < codeMinLength {
			errs[string(f)] = MsgValueTooShort
		}
	}
	if v := q.Get(domain.FieldEmail); v != "" && !validEmail(v) {
		errs[string(domain.FieldEmail)] = MsgInvalidEmail
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validPhone(digits string) bool {
	return len(digits) >= phoneMinDigits && len(digits) <= phoneMaxDigits
}

func validNationalID(digits string) bool {
	return len(digits) == nationalIDLength
}

// validEmail accepts a bare addr-spec whose domain has a dot.
func validEmail(v string) bool {
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Name != "" || addr.Address != v {
		return false
	}
	at := strings.LastIndexByte(v, '@')
	if at <= 0 {
		return false
	}
	host := v[at+1:]
	return strings.Contains(host, ".") && !strings.HasPrefix(host, ".") && !strings.HasSuffix(host, ".")
}
