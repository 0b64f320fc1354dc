// Package session supervises one streaming session: the compositor and
// streaming-endpoint sidecar processes, the runner container, pairing, and
// the idle-timeout policy.
package session

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pipeld/internal/compile"
	"pipeld/internal/container"
	"pipeld/pkg/types"
)

// Config carries the supervisor's tunables. Zero durations fall back to the
// package defaults.
type Config struct {
	CompositorBin    string
	CompositorSocket string
	EndpointBin      string
	RuntimeDir       string
	HealthBaseURLs   []string

	SocketWaitTimeout time.Duration
	RestartBackoff    time.Duration
	StopGrace         time.Duration
	IdlePollInterval  time.Duration
}

const (
	defaultSocketWaitTimeout = 30 * time.Second
	defaultRestartBackoff    = 3 * time.Second
	defaultStopGrace         = 5 * time.Second
	defaultIdlePollInterval  = 15 * time.Second
)

func (c Config) withDefaults() Config {
	if c.SocketWaitTimeout <= 0 {
		c.SocketWaitTimeout = defaultSocketWaitTimeout
	}
	if c.RestartBackoff <= 0 {
		c.RestartBackoff = defaultRestartBackoff
	}
	if c.StopGrace <= 0 {
		c.StopGrace = defaultStopGrace
	}
	if c.IdlePollInterval <= 0 {
		c.IdlePollInterval = defaultIdlePollInterval
	}
	return c
}

// LaunchRequest describes one session to start. The config has already been
// compiled; the supervisor does not care whether the graph or the legacy
// profile path produced it.
type LaunchRequest struct {
	Mode    types.SessionMode
	Config  types.SidecarConfig
	Runner  container.RunParams
	Pattern string
	// IdleTimeout stops the session after this long with no connected
	// clients; zero disables. Only honored in game mode.
	IdleTimeout time.Duration
}

// activeSession is the runtime state of one supervised session. Loops hold
// the session pointer and its context; a superseding launch cancels the old
// context, so a stale loop can never touch the new session's state.
type activeSession struct {
	mode       types.SessionMode
	generation string
	ctx        context.Context
	cancel     context.CancelFunc

	state       types.SessionState
	startedAt   time.Time
	containerID string
	compositor  *managedProcess
	endpoint    *managedProcess
	idleSeconds int
	pendingPin  bool
}

// Supervisor owns at most one active session at a time.
type Supervisor struct {
	cfg        Config
	orch       container.Orchestrator
	log        zerolog.Logger
	health     *healthClient
	httpClient *http.Client

	mu  sync.Mutex
	cur *activeSession
}

// New builds a supervisor around the given orchestrator boundary.
func New(cfg Config, orch container.Orchestrator, log zerolog.Logger) *Supervisor {
	cfg = cfg.withDefaults()
	return &Supervisor{
		cfg:        cfg,
		orch:       orch,
		log:        log,
		health:     newHealthClient(cfg.HealthBaseURLs),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Launch starts a session. Any session already active is torn down first:
// its streaming endpoint stops before the new session starts, so the sink
// port and the GPU render node are free. Launch failures are returned to the
// caller and never retried here; IsLaunchBusy marks the retryable ones.
func (s *Supervisor) Launch(ctx context.Context, req LaunchRequest) error {
	s.mu.Lock()
	if s.cur != nil {
		prev := s.cur
		s.log.Info().Str("generation", prev.generation).Msg("tearing down active session before launch")
		s.stopLocked(prev, types.SessionStopped)
	}

	sessCtx, cancel := context.WithCancel(context.Background())
	sess := &activeSession{
		mode:       req.Mode,
		generation: uuid.NewString(),
		ctx:        sessCtx,
		cancel:     cancel,
		state:      types.SessionStarting,
		startedAt:  time.Now(),
	}
	s.cur = sess
	sessionsActive.Set(1)
	s.mu.Unlock()

	if err := s.launch(ctx, sess, req); err != nil {
		s.mu.Lock()
		if s.cur == sess {
			s.stopLocked(sess, types.SessionStopped)
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Supervisor) launch(ctx context.Context, sess *activeSession, req LaunchRequest) error {
	if err := compile.WriteConfig(s.cfg.RuntimeDir, req.Config); err != nil {
		return ErrLaunch("write sidecar config: %v", err)
	}

	if req.Runner.Image != "" {
		id, err := s.orch.StartRunner(ctx, req.Runner)
		if err != nil {
			if container.IsResourceBusy(err) {
				return ErrLaunchBusy("%v", err)
			}
			return ErrLaunch("runner container: %v", err)
		}
		s.setSession(sess, func() { sess.containerID = id })
	}

	compositor, err := startProcess(s.log, "compositor", s.cfg.CompositorBin,
		"--config", filepath.Join(s.cfg.RuntimeDir, compile.CompositorFile))
	if err != nil {
		return ErrLaunch("%v", err)
	}
	s.setSession(sess, func() { sess.compositor = compositor })

	if err := waitForPath(sess.ctx, s.cfg.CompositorSocket, s.cfg.SocketWaitTimeout); err != nil {
		return err
	}

	endpoint, err := s.startEndpoint(req)
	if err != nil {
		return err
	}
	s.setSession(sess, func() {
		sess.endpoint = endpoint
		sess.state = types.SessionRunning
	})
	s.log.Info().
		Str("generation", sess.generation).
		Str("mode", string(req.Mode)).
		Msg("session running")

	go s.watchCompositor(sess)
	go s.restartLoop(sess, req)
	if req.Mode == types.ModeGame && req.IdleTimeout > 0 {
		mon := &idleMonitor{
			interval: s.cfg.IdlePollInterval,
			timeout:  req.IdleTimeout,
			clients:  s.health.connectedClients,
			onIdle: func(seconds int) {
				s.setSession(sess, func() {
					sess.idleSeconds = seconds
					switch {
					case seconds == 0 && sess.state == types.SessionIdleWarning:
						sess.state = types.SessionRunning
					case seconds > 0 && sess.state == types.SessionRunning &&
						time.Duration(seconds)*time.Second >= req.IdleTimeout/2:
						sess.state = types.SessionIdleWarning
					}
				})
			},
			onExpire: func() {
				s.log.Info().Str("generation", sess.generation).Msg("idle timeout reached, stopping session")
				idleShutdownsTotal.Inc()
				s.stopSession(sess, types.SessionStopped)
			},
		}
		go mon.run(sess.ctx)
	}
	return nil
}

func (s *Supervisor) startEndpoint(req LaunchRequest) (*managedProcess, error) {
	args := []string{
		"--encoder-config", filepath.Join(s.cfg.RuntimeDir, compile.EncoderFile),
		"--sink-config", filepath.Join(s.cfg.RuntimeDir, compile.SinkFile),
	}
	switch req.Mode {
	case types.ModeTestStream:
		args = append(args, "--test-pattern", patternOrDefault(req.Pattern))
	case types.ModeTestX11:
		args = append(args, "--x11-test")
	}
	p, err := startProcess(s.log, "endpoint", s.cfg.EndpointBin, args...)
	if err != nil {
		return nil, ErrLaunch("%v", err)
	}
	return p, nil
}

func patternOrDefault(p string) string {
	if p == "" {
		return "smpte"
	}
	return p
}

// watchCompositor treats a compositor exit as fatal to the whole session.
// Only the streaming endpoint gets auto-restarted.
func (s *Supervisor) watchCompositor(sess *activeSession) {
	select {
	case <-sess.ctx.Done():
		return
	case <-sess.compositor.exited():
	}
	if sess.ctx.Err() != nil {
		return
	}
	s.log.Error().
		Str("generation", sess.generation).
		AnErr("exit", sess.compositor.exitError()).
		Str("stderr", sess.compositor.stderrTail()).
		Msg("compositor exited, session is lost")
	s.stopSession(sess, types.SessionCrashed)
}

// restartLoop relaunches the streaming endpoint after unexpected exits, with
// a fixed backoff, for the life of the session.
func (s *Supervisor) restartLoop(sess *activeSession, req LaunchRequest) {
	for {
		s.mu.Lock()
		endpoint := sess.endpoint
		s.mu.Unlock()
		if endpoint == nil {
			return
		}

		select {
		case <-sess.ctx.Done():
			return
		case <-endpoint.exited():
		}
		if sess.ctx.Err() != nil {
			return
		}

		s.log.Warn().
			Str("generation", sess.generation).
			AnErr("exit", endpoint.exitError()).
			Str("stderr", endpoint.stderrTail()).
			Msg("streaming endpoint exited, restarting after backoff")
		s.setSession(sess, func() { sess.state = types.SessionCrashed })
		endpointRestartsTotal.Inc()

		select {
		case <-sess.ctx.Done():
			return
		case <-time.After(s.cfg.RestartBackoff):
		}
		// Teardown may have won the race against the backoff timer.
		if sess.ctx.Err() != nil {
			return
		}

		next, err := s.startEndpoint(req)
		if err != nil {
			s.log.Error().Err(err).Str("generation", sess.generation).Msg("endpoint relaunch failed, stopping session")
			s.stopSession(sess, types.SessionCrashed)
			return
		}
		applied := s.setSession(sess, func() {
			sess.endpoint = next
			sess.state = types.SessionRunning
		})
		if !applied {
			// The session was torn down between the cancellation check and
			// the spawn; the replacement endpoint is untracked, kill it here.
			s.log.Warn().Str("generation", sess.generation).Msg("session ended during endpoint relaunch, stopping replacement")
			next.stop(s.cfg.StopGrace)
			return
		}
	}
}

// Stop tears down the active session gracefully.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return noSessionError{}
	}
	s.stopLocked(s.cur, types.SessionStopped)
	return nil
}

// stopSession stops the given session if it is still the active one. Called
// from monitor loops, which always belong to one specific session.
func (s *Supervisor) stopSession(sess *activeSession, final types.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != sess {
		return
	}
	s.stopLocked(sess, final)
}

// stopLocked performs the shutdown order: cancel loops, endpoint before
// compositor (each with a bounded grace period), then the runner container.
// Callers hold s.mu.
func (s *Supervisor) stopLocked(sess *activeSession, final types.SessionState) {
	sess.state = types.SessionStopping
	sess.cancel()
	sess.endpoint.stop(s.cfg.StopGrace)
	sess.compositor.stop(s.cfg.StopGrace)
	if sess.containerID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := s.orch.StopRunner(ctx, sess.containerID); err != nil {
			s.log.Warn().Err(err).Msg("runner container stop failed")
		}
		cancel()
	}
	sess.state = final
	if s.cur == sess {
		s.cur = nil
	}
	sessionsActive.Set(0)
	s.log.Info().Str("generation", sess.generation).Str("state", string(final)).Msg("session ended")
}

// setSession applies a mutation if sess is still the active session and
// reports whether it did. Callers mutating external resources must clean up
// themselves when the mutation was discarded.
func (s *Supervisor) setSession(sess *activeSession, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != sess {
		return false
	}
	fn()
	return true
}

// Status reports the runtime status of the active session, or a stopped
// placeholder when none is active.
func (s *Supervisor) Status(ctx context.Context) types.SessionStatus {
	s.mu.Lock()
	sess := s.cur
	var st types.SessionStatus
	if sess != nil {
		st = types.SessionStatus{
			Mode:        sess.mode,
			State:       sess.state,
			ContainerID: sess.containerID,
			Generation:  sess.generation,
			EndpointPID: sess.endpoint.pid(),
			IdleSeconds: sess.idleSeconds,
			PendingPin:  sess.pendingPin,
			StartedAt:   sess.startedAt,
		}
	} else {
		st = types.SessionStatus{State: types.SessionStopped}
	}
	s.mu.Unlock()

	st.RuntimeUp = s.orch.DaemonUp(ctx)
	st.PairedClients = []string{}
	if sess != nil {
		if base, ok := s.health.firstLive(ctx); ok {
			st.PairedClients = s.pairedClients(ctx, base)
		}
	}
	return st
}

// Active reports whether a session is currently supervised.
func (s *Supervisor) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur != nil
}

// Pair drives the pairing workflow. The PIN is normalized to exactly 4
// digits before any network call; the endpoint's response is judged by the
// pairingSucceeded heuristic.
func (s *Supervisor) Pair(ctx context.Context, req types.PairRequest) (types.PairResponse, error) {
	base, live := s.health.firstLive(ctx)

	switch req.Action {
	case "status":
		resp := types.PairResponse{Ready: live, Paired: []string{}}
		if live {
			resp.Paired = s.pairedClients(ctx, base)
		}
		return resp, nil

	case "clear":
		if !live {
			return types.PairResponse{}, ErrPairing("streaming endpoint is not ready")
		}
		if err := s.clearPairedClients(ctx, base); err != nil {
			return types.PairResponse{}, err
		}
		return types.PairResponse{Ready: true, Paired: []string{}, Message: "paired clients cleared"}, nil

	case "pair":
		pin, err := NormalizePin(req.Pin)
		if err != nil {
			pairingAttemptsTotal.WithLabelValues("rejected").Inc()
			return types.PairResponse{}, err
		}
		if !live {
			pairingAttemptsTotal.WithLabelValues("unreachable").Inc()
			return types.PairResponse{}, ErrPairing("streaming endpoint is not ready")
		}
		s.mu.Lock()
		if s.cur != nil {
			s.cur.pendingPin = true
		}
		s.mu.Unlock()
		err = s.submitPin(ctx, base, pin)
		s.mu.Lock()
		if s.cur != nil {
			s.cur.pendingPin = false
		}
		s.mu.Unlock()
		if err != nil {
			pairingAttemptsTotal.WithLabelValues("failed").Inc()
			return types.PairResponse{}, err
		}
		pairingAttemptsTotal.WithLabelValues("ok").Inc()
		return types.PairResponse{Ready: true, Paired: s.pairedClients(ctx, base), Message: "paired"}, nil

	default:
		return types.PairResponse{}, ErrPairing("unknown action %q", req.Action)
	}
}
