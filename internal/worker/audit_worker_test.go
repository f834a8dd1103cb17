package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/blog-service/internal/events"
	"github.com/spec-kit/blog-service/internal/service"
)

func TestStartAuditWorker_LogsEvents(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewDispatcher()

	StartAuditWorker(service.NewAuditService(dispatcher, zap.New(core)))
	StartAuditWorker(nil)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		ID:        "evt-1",
		Type:      events.EventLoginFailed,
		SubjectID: "u-1",
		Payload:   events.LoginFailedPayload{Reason: "wrong_password"},
	}))

	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "login_failed", entries[0].ContextMap()["event_type"])
}
