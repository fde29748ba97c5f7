package wa

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	_ "modernc.org/sqlite"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/repo"
)

// State is the connection lifecycle phase.
type State string

const (
	StateDisconnected   State = "disconnected"
	StateAuthenticating State = "authenticating"
	StateConnected      State = "connected"
	// StateTerminated means the credentials were invalidated remotely.
	// The process must restart and re-pair; no reconnect is attempted.
	StateTerminated State = "terminated"
)

// backupGrace is how long after connecting the session backup waits for
// the socket to settle.
const backupGrace = 5 * time.Second

// ErrLoggedOut is returned by Run when the credentials were invalidated
// remotely. The operator must delete the session and pair again.
var ErrLoggedOut = errors.New("logged out remotely, re-pair required")

// EventSink receives extracted inbound events.
type EventSink interface {
	HandleBatch(events []*domain.Event)
}

// Manager owns the whatsmeow client lifecycle: pairing, the reconnect
// loop, remote-logout credential wipes, call rejection and the post-connect
// session backup.
type Manager struct {
	client    *whatsmeow.Client
	container *sqlstore.Container
	transport *Client
	settings  repo.SettingsRepo
	sink      EventSink

	dbPath         string
	reconnectDelay time.Duration
	pairPhone      string

	// connect dials the transport; a field so the retry loops are
	// testable without a socket.
	connect func() error

	mu     sync.Mutex
	state  State
	ready  sync.Once
	onceUp func()

	// done is closed exactly once when the session terminates.
	done chan struct{}
	term sync.Once

	log zerolog.Logger
}

// NewManager opens the session store at dbPath and prepares a client.
// onceUp runs exactly once, after the first successful connect.
func NewManager(ctx context.Context, dbPath, pairPhone string, ratePerMinute int, reconnectDelay time.Duration, settings repo.SettingsRepo, log zerolog.Logger) (*Manager, error) {
	dbLog := waLog.Stdout("Database", "WARN", true)
	container, err := sqlstore.New(ctx, "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)", dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load device: %w", err)
	}

	clientLog := waLog.Stdout("Client", "WARN", true)
	client := whatsmeow.NewClient(device, clientLog)
	client.EnableAutoReconnect = false

	m := &Manager{
		client:         client,
		container:      container,
		settings:       settings,
		dbPath:         dbPath,
		reconnectDelay: reconnectDelay,
		pairPhone:      trimmedPhone(pairPhone),
		connect:        client.Connect,
		state:          StateDisconnected,
		done:           make(chan struct{}),
		log:            log.With().Str("component", "session").Logger(),
	}
	m.transport = NewClient(client, ratePerMinute, log)
	return m, nil
}

// Transport returns the outbound adapter backed by this manager's client.
func (m *Manager) Transport() *Client {
	return m.transport
}

// OnConnected sets the hook that runs once after the first connect.
func (m *Manager) OnConnected(fn func()) {
	m.onceUp = fn
}

// SetSink sets the inbound event consumer. Must be called before Run.
func (m *Manager) SetSink(sink EventSink) {
	m.sink = sink
}

// State returns the current lifecycle phase.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()
	if prev != s {
		m.log.Info().Str("from", string(prev)).Str("to", string(s)).Msg("session state changed")
	}
}

// Run connects (pairing first if there is no stored session) and keeps
// the session alive until ctx is cancelled or the account is logged out.
// Transient dial failures never escape: the initial connect retries on
// the same fixed delay as the reconnect loop.
func (m *Manager) Run(ctx context.Context) error {
	m.client.AddEventHandler(func(evt any) { m.handleEvent(ctx, evt) })

	m.setState(StateAuthenticating)
	if m.client.Store.ID == nil {
		if err := m.pair(ctx); err != nil {
			m.setState(StateDisconnected)
			return fmt.Errorf("failed to pair: %w", err)
		}
	} else if err := m.connectWithRetry(ctx); err != nil {
		m.container.Close()
		return err
	}

	select {
	case <-ctx.Done():
	case <-m.done:
		m.container.Close()
		return ErrLoggedOut
	}
	m.client.Disconnect()
	m.container.Close()
	return nil
}

// connectWithRetry dials until it succeeds, waiting the fixed reconnect
// delay between attempts. It gives up only on cancellation or a remote
// logout.
func (m *Manager) connectWithRetry(ctx context.Context) error {
	for {
		err := m.connect()
		if err == nil {
			return nil
		}
		m.setState(StateDisconnected)
		m.log.Error().Err(err).Dur("retry_in", m.reconnectDelay).Msg("connect failed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return ErrLoggedOut
		case <-time.After(m.reconnectDelay):
		}
		m.setState(StateAuthenticating)
	}
}

func (m *Manager) handleEvent(ctx context.Context, evt any) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Any("panic", r).Msg("event handler panicked")
		}
	}()

	switch v := evt.(type) {
	case *events.Message:
		if e := BuildEvent(v); e != nil && m.sink != nil {
			m.sink.HandleBatch([]*domain.Event{e})
		}

	case *events.Connected:
		m.setState(StateConnected)
		if err := m.transport.Presence(ctx, "", repo.PresenceAvailable); err != nil {
			m.log.Debug().Err(err).Msg("presence update failed")
		}
		m.ready.Do(func() {
			if m.onceUp != nil {
				go m.onceUp()
			}
			go m.backupSession(ctx)
		})

	case *events.Disconnected, *events.StreamReplaced, *events.LoggedOut:
		m.superviseConnLoss(ctx, evt)

	case *events.TemporaryBan:
		m.log.Error().Str("code", v.Code.String()).Msg("temporary ban received")

	case *events.CallOffer:
		go m.maybeRejectCall(ctx, v)
	}
}

// connAction is the supervisory decision for a connection-loss event.
type connAction int

const (
	connIgnore connAction = iota
	connReconnect
	connTerminate
)

// connLossAction maps a transport lifecycle event to its supervisory
// action: a remote logout invalidates the credentials, any other loss is
// retried on the fixed delay.
func connLossAction(evt any) connAction {
	switch evt.(type) {
	case *events.LoggedOut:
		return connTerminate
	case *events.Disconnected, *events.StreamReplaced:
		return connReconnect
	}
	return connIgnore
}

// superviseConnLoss applies the decision for one connection-loss event.
func (m *Manager) superviseConnLoss(ctx context.Context, evt any) {
	switch connLossAction(evt) {
	case connTerminate:
		v := evt.(*events.LoggedOut)
		m.log.Warn().Str("reason", v.Reason.String()).Msg("logged out remotely, wiping credentials")
		m.terminate(ctx)
	case connReconnect:
		if m.State() == StateTerminated {
			return
		}
		if _, ok := evt.(*events.StreamReplaced); ok {
			m.log.Warn().Msg("stream replaced by another client")
		}
		m.setState(StateDisconnected)
		go m.reconnect(ctx)
	}
}

// reconnect retries with a fixed delay until connected or cancelled.
func (m *Manager) reconnect(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.reconnectDelay):
		}
		if m.State() == StateTerminated || m.client.IsConnected() {
			return
		}
		m.setState(StateAuthenticating)
		m.log.Info().Msg("reconnecting")
		if err := m.connect(); err != nil {
			m.log.Error().Err(err).Msg("reconnect failed")
			m.setState(StateDisconnected)
			continue
		}
		return
	}
}

// terminate wipes the stored credentials so the next start re-pairs, and
// signals Run to return.
func (m *Manager) terminate(ctx context.Context) {
	m.setState(StateTerminated)
	if m.client != nil {
		m.client.Disconnect()
		if m.client.Store != nil {
			if err := m.client.Store.Delete(ctx); err != nil {
				m.log.Error().Err(err).Msg("credential wipe failed")
			}
		}
	}
	m.term.Do(func() { close(m.done) })
}

// backupSession sends the session database to the bot's own chat shortly
// after the first connect.
func (m *Manager) backupSession(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(backupGrace):
	}
	own := m.transport.OwnJID()
	if own == "" {
		return
	}
	data, err := os.ReadFile(m.dbPath)
	if err != nil {
		m.log.Error().Err(err).Msg("session backup read failed")
		return
	}
	if err := m.transport.SendDocument(ctx, own, data, "session.db", "application/octet-stream", "🔐 Session backup"); err != nil {
		m.log.Error().Err(err).Msg("session backup send failed")
		return
	}
	m.log.Info().Msg("session backup sent")
}

// maybeRejectCall rejects an incoming call when anti-call is enabled.
func (m *Manager) maybeRejectCall(ctx context.Context, v *events.CallOffer) {
	st, err := m.settings.Load(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("settings load failed")
		return
	}
	if !st.AntiCall {
		return
	}
	if err := m.client.RejectCall(ctx, v.CallCreator, v.CallID); err != nil {
		m.log.Error().Err(err).Msg("call reject failed")
		return
	}
	caller := v.CallCreator.ToNonAD().String()
	m.log.Info().Str("caller", caller).Msg("call rejected")
	if err := m.transport.SendText(ctx, caller, "🚫 Calls are not allowed. Please send a message instead."); err != nil {
		m.log.Debug().Err(err).Msg("anti-call notice failed")
	}
}
