package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/V4T54L/service-portal/internal/adapter/api/middleware"
	"github.com/V4T54L/service-portal/internal/domain"
	"github.com/V4T54L/service-portal/internal/usecase"
)

// LookupPath is where callers are sent when the workflow has no valid state.
const LookupPath = "/lookup"

const maxFormBytes = 64 << 10

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Default().Error("failed to write JSON response", "error", err)
		}
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondValidation(w http.ResponseWriter, errs domain.ValidationErrors) {
	respondWithJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":  "validation failed",
		"fields": errs,
	})
}

// redirectToLookup sends the client back to the start of the workflow.
func redirectToLookup(w http.ResponseWriter, message string) {
	w.Header().Set("Location", LookupPath)
	respondWithJSON(w, http.StatusSeeOther, map[string]string{
		"error":    message,
		"redirect": LookupPath,
	})
}

// decodeForm reads a JSON object or a url-encoded form into a flat map.
func decodeForm(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "" || mediaType == "application/json" {
		var raw map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		values := make(map[string]string, len(raw))
		for k, v := range raw {
			switch v := v.(type) {
			case string:
				values[k] = v
			case json.Number:
				values[k] = v.String()
			case bool:
				values[k] = strconv.FormatBool(v)
			}
		}
		return values, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	values := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		values[k] = r.PostForm.Get(k)
	}
	return values, nil
}

func requestMeta(r *http.Request) usecase.RequestMeta {
	return usecase.RequestMeta{
		SessionID: middleware.SessionIDFromContext(r.Context()),
		Actor:     middleware.ActorFromContext(r.Context()),
		ClientIP:  middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func isMaxBytes(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

func badBody(w http.ResponseWriter, err error) {
	if isMaxBytes(err) {
		respondWithError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}
	respondWithError(w, http.StatusBadRequest, "invalid request body")
}
