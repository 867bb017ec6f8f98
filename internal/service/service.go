// Package service implements the supervisor use cases on top of the ports.
// Services load entity collections from the store, hand them to the pure
// engines (skills, compliance, risk, investigation) and persist the results.
package service

import (
	"fmt"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("service")

// timeNow is replaced in tests.
var timeNow = time.Now

func today() domain.Date {
	return domain.DateOf(timeNow())
}

func newID() string {
	return uuid.NewString()
}

func dashboardKey(uid string) string {
	return fmt.Sprintf("dashboard:%s", uid)
}

// invalidate drops every cached view derived from uid's data.
func invalidate(c port.Cache[any], uid string) {
	if c != nil {
		c.DeletePrefix(dashboardKey(uid))
	}
}

func requireUID(uid string) error {
	if uid == "" {
		return &domain.ErrUnauthorized{Message: "missing user id"}
	}
	return nil
}
