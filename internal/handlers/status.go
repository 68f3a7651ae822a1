package handlers

import (
	"encoding/json"
	"net/http"

	"templatetracker/internal/dto"
	"templatetracker/internal/logger"
)

// StatusSource reports the live tracking state.
type StatusSource interface {
	Status() dto.TrackerStatus
}

// StatusHandler returns the tracker state as JSON.
func StatusHandler(source StatusSource, viewers Viewers, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := source.Status()
		if viewers != nil {
			status.Viewers = viewers.GetClientCount()
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}
