package api

import (
	"strings"

	"github.com/shopspring/decimal"
)

type fieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type fieldErrors []fieldError

func (e fieldErrors) Error() string {
	var b strings.Builder
	for i, fe := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(fe.Field + ": " + fe.Msg)
	}
	return b.String()
}

func required(field, value string) *fieldError {
	if strings.TrimSpace(value) == "" {
		return &fieldError{Field: field, Msg: "required"}
	}
	return nil
}

func positive(field string, v decimal.Decimal) *fieldError {
	if !v.IsPositive() {
		return &fieldError{Field: field, Msg: "must be > 0"}
	}
	return nil
}

// msisdn accepts digits only, optionally with a leading '+'.
func msisdn(field, value string) *fieldError {
	v := strings.TrimPrefix(value, "+")
	if v == "" {
		return nil
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return &fieldError{Field: field, Msg: "must contain digits only"}
		}
	}
	return nil
}

func collect(checks ...*fieldError) fieldErrors {
	var out fieldErrors
	for _, c := range checks {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}
