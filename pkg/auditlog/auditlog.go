package auditlog

import (
	"log"

	"github.com/synard1/ximopet-sub010/internal/auditlog"
	"github.com/synard1/ximopet-sub010/pkg/models"
)

type Auditlog struct {
	r *auditlog.AuditLogRepository
}

type Auditable interface {
	CreateLogView() models.AuditLog
}

// Log records one audit entry for a ledger mutation. Failures are logged
// and swallowed; an audit miss must never fail the business operation that
// already committed.
func (a *Auditlog) Log(action string, data interface{}, item Auditable) {
	auditLog := item.CreateLogView()
	auditLog.Action = action

	err := a.r.PersistLog(auditLog, data)

	if err != nil {
		log.Println("Unable to create AuditLog entry for id ", auditLog.ResourceID)
		return
	}
}

// LogAs stamps the acting user on the entry.
func (a *Auditlog) LogAs(actor, action string, data interface{}, item Auditable) {
	auditLog := item.CreateLogView()
	auditLog.Action = action
	auditLog.Actor = &actor

	if err := a.r.PersistLog(auditLog, data); err != nil {
		log.Println("Unable to create AuditLog entry for id ", auditLog.ResourceID)
	}
}

func NewAuditLog(repository *auditlog.AuditLogRepository) *Auditlog {
	a := Auditlog{r: repository}

	return &a
}
