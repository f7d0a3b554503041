package worker

import (
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StartHistoryWorker registers the ticket history handlers.
func StartHistoryWorker(recorder *service.HistoryRecorder) {
	if recorder == nil {
		return
	}
	recorder.RegisterHandlers()
}
