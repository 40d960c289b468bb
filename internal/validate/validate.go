package validate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"roomservice/internal/apperr"
	"roomservice/internal/query"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxNotes        = 500
	MaxQty          = 50
)

var (
	reEmail = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reQ     = regexp.MustCompile(`^[A-Za-z0-9 _'\-]{1,50}$`)
	reField = regexp.MustCompile(`^[a-z_]{1,32}$`)
)

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 50 {
		return "", false
	}
	return strings.ToLower(s), reEmail.MatchString(s)
}

// Q validates a search term: trims, enforces allowed characters and max length.
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if len(s) > 50 {
		s = s[:50]
	}
	return s, reQ.MatchString(s)
}

// Qty parses a quantity, defaulting to 1 and clamping to MaxQty.
func Qty(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	if n > MaxQty {
		return MaxQty
	}
	return n
}

// ID parses a positive integer identifier.
func ID(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Page reads page and size query values. Missing values take defaults; values
// that are present but not positive integers are rejected.
func Page(pageStr, sizeStr string) (page, size int, err error) {
	page, size = 1, DefaultPageSize
	if s := strings.TrimSpace(pageStr); s != "" {
		if page, err = strconv.Atoi(s); err != nil || page < 1 {
			return 0, 0, apperr.Validation("page must be a positive integer")
		}
	}
	if s := strings.TrimSpace(sizeStr); s != "" {
		if size, err = strconv.Atoi(s); err != nil || size < 1 {
			return 0, 0, apperr.Validation("size must be a positive integer")
		}
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size, nil
}

// Sorts parses "field" / "-field" terms separated by commas, e.g.
// "-created_at,id". Field names are checked again by the query builder.
func Sorts(s string) ([]query.Sort, error) {
	var out []query.Sort
	for _, term := range strings.Split(s, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		dir := query.Asc
		if strings.HasPrefix(term, "-") {
			dir, term = query.Desc, term[1:]
		}
		if !reField.MatchString(term) {
			return nil, apperr.Validation("bad sort term %q", term)
		}
		out = append(out, query.Sort{Field: term, Dir: dir})
	}
	return out, nil
}

// Time accepts RFC 3339 timestamps or plain dates.
func Time(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validation("bad time %q; use RFC 3339 or YYYY-MM-DD", s)
}

func Price(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, apperr.Validation("bad price %q", s)
	}
	return d, nil
}

// Notes trims free text and enforces a length cap.
func Notes(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, len(s) <= MaxNotes
}

// Password enforces a length window and character mix for login checks.
func Password(s string) bool {
	l := len(s)
	if l < 8 || l > 20 {
		return false
	}
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			hasLower = true
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case '0' <= r && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasDigit && hasSymbol
}
