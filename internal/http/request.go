package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"dailyledger/internal/core"
	"dailyledger/internal/report"
)

var errBadRequest = errors.New("bad request")

var strictPolicy = bluemonday.StrictPolicy()

const maxAmountExponent = 32

// amountField accepts an amount as a JSON number or a string, so the shell
// can forward "12,50" as typed.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	// a bare number may carry an exponent (1e2); expand it to plain digits
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return err
	}
	if e := d.Exponent(); e > maxAmountExponent || e < -maxAmountExponent {
		return fmt.Errorf("amount %s out of range", n)
	}
	*a = amountField(d.String())
	return nil
}

type incomeRequest struct {
	Amount amountField `json:"amount"`
}

type transactionRequest struct {
	Type       string      `json:"type"`
	Amount     amountField `json:"amount"`
	Note       string      `json:"note"`
	PersonName string      `json:"personName"`
	Repay      bool        `json:"repay"`
}

type emailSignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// decodeJSON reads a size limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: body larger than %d bytes", errBadRequest, maxErr.Limit)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: malformed JSON", errBadRequest)
	}
	return nil
}

// parseAmount parses a user amount. Negative input is refused here; the
// caller applies the sign.
func parseAmount(a amountField) (decimal.Decimal, error) {
	return core.ParseAmount(string(a))
}

// parseSignedAmount also takes a leading minus. DEBT uses it: a negative
// amount is a repayment.
func parseSignedAmount(a amountField) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(a))
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		d, err := core.ParseAmount(rest)
		if err != nil {
			return decimal.Zero, err
		}
		return d.Neg(), nil
	}
	return core.ParseAmount(s)
}

// sanitizeText strips markup and control characters from free text.
func sanitizeText(s string) string {
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\t' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// parseDays reads the days query parameter of the daily report.
func parseDays(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("days"))
	if v == "" {
		return report.DefaultDays, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > report.MaxDays {
		return 0, fmt.Errorf("%w: days must be between 1 and %d", errBadRequest, report.MaxDays)
	}
	return n, nil
}
