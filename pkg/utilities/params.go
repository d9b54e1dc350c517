package utilities

import (
	"net/http"
	"strconv"
)

// PathID parses a positive integer path value such as {id}.
func PathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
