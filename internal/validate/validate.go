// Package validate holds request-level input checks shared by the handlers.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"tillbox/internal/domain"
)

var (
	v = validator.New()

	reItemNumber = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// Struct validates tagged request DTOs. Failures come back as ErrValidation.
func Struct(s any) error {
	if err := v.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

// ItemNumber trims and checks an item number's shape. Case is normalized
// later, at the store boundary.
func ItemNumber(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reItemNumber.MatchString(s)
}

// Limit parses a page-size query param; 0 means "no limit requested".
func Limit(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0
	}
	if n > 500 {
		return 500
	}
	return n
}

// DayWindow returns the [start, next day) epoch-second window for a
// YYYY-MM-DD date in the given location.
func DayWindow(s string, loc *time.Location) (int64, int64, error) {
	start, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid date %q: %w", s, domain.ErrValidation)
	}
	return start.Unix(), start.AddDate(0, 0, 1).Unix(), nil
}

// MonthWindow returns the [start of month, start of next month) epoch-second
// window for a YYYY-MM month, rolling the year over December.
func MonthWindow(s string, loc *time.Location) (int64, int64, error) {
	start, err := time.ParseInLocation("2006-01", s, loc)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q: %w", s, domain.ErrValidation)
	}
	return start.Unix(), start.AddDate(0, 1, 0).Unix(), nil
}
