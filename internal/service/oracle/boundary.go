package oracle

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	contract "github.com/onchainlabs/price-oracle/oracle"
)

// tagged failure codes surfaced to API clients
const (
	codeBadRequest          = "bad_request"
	codeUnauthorized        = "unauthorized"
	codeInsufficientSources = "insufficient_sources"
	codeInternal            = "internal"
)

type apiError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Required int    `json:"required,omitempty"`
	Actual   int    `json:"actual,omitempty"`
}

func (e *apiError) Error() string {
	return e.Message
}

func badRequestf(format string, args ...interface{}) error {
	return &apiError{
		Code:    codeBadRequest,
		Message: fmt.Sprintf(format, args...),
	}
}

// parseMicroUSD converts the submitted price into micro-dollars. Exactly
// one of priceUSD (integer micro-dollars) or price (decimal USD string)
// must be given. Range and sign violations are caught here, before the
// contract operation runs.
func parseMicroUSD(priceUSD, price string) (uint64, error) {
	var micro decimal.Decimal

	switch {
	case priceUSD != "" && price != "":
		return 0, badRequestf("specify either price_usd or price, not both")

	case priceUSD != "":
		d, err := decimal.NewFromString(priceUSD)
		if err != nil {
			return 0, badRequestf("malformed price_usd: %s", priceUSD)
		}
		if !d.IsInteger() {
			return 0, badRequestf("price_usd must be an integer amount of micro-dollars")
		}
		micro = d

	case price != "":
		d, err := decimal.NewFromString(price)
		if err != nil {
			return 0, badRequestf("malformed price: %s", price)
		}
		// decimal USD to micro-dollars, truncating sub-micro digits
		micro = d.Shift(6).Truncate(0)

	default:
		return 0, badRequestf("price_usd is required")
	}

	if micro.IsNegative() {
		return 0, badRequestf("price must not be negative")
	}

	bigMicro := micro.BigInt()
	if !bigMicro.IsUint64() {
		return 0, badRequestf("price out of range")
	}

	return bigMicro.Uint64(), nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string, details *contract.InsufficientSourcesError) {
	body := &apiError{
		Code:    code,
		Message: message,
	}
	if details != nil {
		body.Required = details.Required
		body.Actual = details.Actual
	}

	writeJSON(w, status, map[string]interface{}{"error": body})
}

// writeCallError maps a failed call to its tagged HTTP failure.
func writeCallError(w http.ResponseWriter, err error) {
	var insufficientErr *contract.InsufficientSourcesError
	var apiErr *apiError

	switch {
	case errors.As(err, &apiErr):
		status := http.StatusBadRequest
		if apiErr.Code == codeInternal {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, map[string]interface{}{"error": apiErr})

	case errors.Is(err, contract.ErrUnauthorized):
		writeError(w, http.StatusForbidden, codeUnauthorized, err.Error(), nil)

	case errors.As(err, &insufficientErr):
		writeError(w, http.StatusUnprocessableEntity, codeInsufficientSources, err.Error(), insufficientErr)

	default:
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error(), nil)
	}
}
