package utils

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/EmpoweredVote/EV-Auth/internal/apperr"
)

// WriteJSON writes {success:true, ...payload}.
func WriteJSON(w http.ResponseWriter, status int, payload map[string]any) {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates err into its kind's status and a {success:false,message} body.
// Causes are logged here and never sent to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.From(err)
	if e.Err != nil {
		log.Printf("[auth] %s %s: %s: %v", r.Method, r.URL.Path, e.Kind, e.Err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Kind.Status())
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": e.Message,
	})
}

// DecodeJSON reads a JSON body; an empty body leaves out untouched.
// Bodies are capped by chi's RequestSize middleware on each route.
func DecodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.TooLarge("Request body too large")
		}
		return apperr.Validation("Invalid request format")
	}
	return nil
}
