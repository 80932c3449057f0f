package http

import (
	"net/http"
	"strconv"

	"tably/pkg/config"
	apperrors "tably/pkg/errors"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = int64(v)
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// RequesterEmail returns the caller identity forwarded by the API gateway.
// Authentication itself happens upstream; the core only needs the resolved
// email for ownership checks.
func RequesterEmail(r *http.Request) string {
	return r.Header.Get("X-User-Email")
}
