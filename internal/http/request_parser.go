package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const maxBodyBytes = 1 << 20

var errMissingParam = errors.New("missing parameter")

// MonthParams holds the year and month of a monthly report.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams requires both year and month. Range checks on month are
// left to the report service.
func ParseMonthParams(query url.Values) (MonthParams, error) {
	year, err := requiredInt(query, "year")
	if err != nil {
		return MonthParams{}, err
	}
	month, err := requiredInt(query, "month")
	if err != nil {
		return MonthParams{}, err
	}
	if year < 1 || year > 9999 {
		return MonthParams{}, fmt.Errorf("invalid year %d", year)
	}
	return MonthParams{Year: year, Month: month}, nil
}

func requiredInt(query url.Values, name string) (int, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return 0, fmt.Errorf("%w: %s", errMissingParam, name)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a number", name, v)
	}
	return n, nil
}

// ParseLimit reads an optional positive limit, clamped to ceiling.
func ParseLimit(query url.Values, def, ceiling int) (int, error) {
	v := strings.TrimSpace(query.Get("limit"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid limit %q: must be a positive number", v)
	}
	return min(n, ceiling), nil
}

type importRequest struct {
	Path string `json:"path"`
}

// decodeImportRequest reads a JSON body holding a non-empty path.
func decodeImportRequest(w http.ResponseWriter, r *http.Request) (importRequest, error) {
	var req importRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, errors.New("empty request body")
		}
		return req, fmt.Errorf("invalid JSON body: %w", err)
	}
	req.Path = sanitizeInput(req.Path)
	if req.Path == "" {
		return req, fmt.Errorf("%w: path", errMissingParam)
	}
	return req, nil
}

// sanitizeInput trims and drops control characters.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func methodAllowed(allow, method string) bool {
	for _, m := range strings.Split(allow, ",") {
		if strings.TrimSpace(m) == method {
			return true
		}
	}
	return method == http.MethodHead && strings.Contains(allow, http.MethodGet)
}
