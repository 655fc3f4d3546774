package restapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"oeffimonitor.org/internal/logging"
	"oeffimonitor.org/internal/models"
)

type errorResponse struct {
	Code        int    `json:"code"`
	CurrentTime int64  `json:"currentTime"`
	Text        string `json:"text"`
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, code int, text string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(errorResponse{
		Code:        code,
		CurrentTime: models.ResponseCurrentTime(),
		Text:        text,
	})
	if err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to encode error response", err)
	}
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(api.Logger, "internal server error", err, slog.String("path", r.URL.Path))
	writeErrorResponse(w, r, http.StatusInternalServerError, "internal server error")
}

func (api *RestAPI) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	writeErrorResponse(w, r, http.StatusNotFound, "not found")
}

func (api *RestAPI) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	writeErrorResponse(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
