package health

import (
	"net/http"

	"github.com/InjectiveLabs/metrics"
	log "github.com/InjectiveLabs/suplog"
)

type Service struct {
	logger  log.Logger
	svcTags metrics.Tags
}

func NewService(logger log.Logger, svcTags metrics.Tags) *Service {
	return &Service{
		logger:  logger,
		svcTags: svcTags,
	}
}

// HandleStatus reports process liveness.
func (s *Service) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	metrics.ReportFuncCall(s.svcTags)
	doneFn := metrics.ReportFuncTiming(s.svcTags)
	defer doneFn()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
