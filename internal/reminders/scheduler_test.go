package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartappt/voice-ai-platform/internal/appointments"
)

func TestSchedulerSweepsOnInterval(t *testing.T) {
	caller := &stubCaller{}
	svc := NewService(&stubAppointments{upcoming: []appointments.Appointment{
		scheduled(1, "+15551230001"),
	}}, caller, "https://voice.example.com", nil)
	sched := NewScheduler(svc, 10*time.Millisecond, nil).WithBatchSize(5)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	sched.Start(ctx)

	caller.mu.Lock()
	defer caller.mu.Unlock()
	require.NotEmpty(t, caller.requests, "scheduler placed no reminder calls")
	assert.Equal(t, "+15551230001", caller.requests[0].To)
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	svc := NewService(&stubAppointments{}, &stubCaller{}, "https://voice.example.com", nil)
	sched := NewScheduler(svc, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		sched.Start(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}
