package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mcoot/golfcards/internal/api/apierr"
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// decodeBody reads a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apierr.NewInvalidRequestError("Invalid request body")
}
