package wa

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow/types/events"
)

func newTestManager() *Manager {
	return &Manager{
		reconnectDelay: time.Millisecond,
		state:          StateDisconnected,
		done:           make(chan struct{}),
		log:            zerolog.Nop(),
	}
}

func TestConnLossAction(t *testing.T) {
	cases := []struct {
		name string
		evt  any
		want connAction
	}{
		{"logged out", &events.LoggedOut{}, connTerminate},
		{"disconnected", &events.Disconnected{}, connReconnect},
		{"stream replaced", &events.StreamReplaced{}, connReconnect},
		{"temporary ban", &events.TemporaryBan{}, connIgnore},
		{"connected", &events.Connected{}, connIgnore},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := connLossAction(tc.evt); got != tc.want {
				t.Errorf("connLossAction(%T) = %v, want %v", tc.evt, got, tc.want)
			}
		})
	}
}

func TestConnectWithRetry_SurvivesTransientFailures(t *testing.T) {
	m := newTestManager()
	attempts := 0
	m.connect = func() error {
		attempts++
		if attempts < 3 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	}

	if err := m.connectWithRetry(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestConnectWithRetry_StopsOnCancel(t *testing.T) {
	m := newTestManager()
	m.connect = func() error { return errors.New("dial tcp: connection refused") }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.connectWithRetry(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestConnectWithRetry_StopsOnTermination(t *testing.T) {
	m := newTestManager()
	m.connect = func() error { return errors.New("dial tcp: connection refused") }
	close(m.done)

	err := m.connectWithRetry(context.Background())
	if !errors.Is(err, ErrLoggedOut) {
		t.Errorf("err = %v, want ErrLoggedOut", err)
	}
}

func TestTerminate_SignalsDone(t *testing.T) {
	m := newTestManager()

	m.terminate(context.Background())

	if m.State() != StateTerminated {
		t.Errorf("state = %q", m.State())
	}
	select {
	case <-m.done:
	default:
		t.Error("terminate must close the done channel")
	}

	// A second logout event must not panic on a double close.
	m.terminate(context.Background())
}
