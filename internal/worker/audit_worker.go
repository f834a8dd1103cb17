package worker

import (
	"github.com/spec-kit/blog-service/internal/service"
)

// StartAuditWorker registers the audit log listeners.
func StartAuditWorker(audit *service.AuditService) {
	if audit == nil {
		return
	}
	audit.RegisterHandlers()
}
