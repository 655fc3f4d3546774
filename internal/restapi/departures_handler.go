package restapi

import (
	"context"
	"encoding/json"
	"net/http"

	"oeffimonitor.org/internal/logging"
	"oeffimonitor.org/internal/models"
)

// departuresHandler serves one aggregation cycle. A cycle in which every stop
// failed is answered with 502.
func (api *RestAPI) departuresHandler(w http.ResponseWriter, r *http.Request) {
	// A client hanging up does not cancel the cycle; its result is still cached.
	env := api.Departures.Collect(context.WithoutCancel(r.Context()))

	status := http.StatusOK
	if env.Status == models.StatusError {
		status = http.StatusBadGateway
	}

	body, err := json.Marshal(env)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to write departures response", err)
	}
}
