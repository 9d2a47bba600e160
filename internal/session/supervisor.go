package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"zju-course-assistant/internal/auther"
	"zju-course-assistant/internal/store"
)

// State 会话监督器所处的状态。
type State int

const (
	NoCredential State = iota
	ValidSession
	ExpiredSession
	ReauthFailed
)

func (s State) String() string {
	switch s {
	case NoCredential:
		return "no_credential"
	case ValidSession:
		return "valid"
	case ExpiredSession:
		return "expired"
	case ReauthFailed:
		return "reauth_failed"
	default:
		return "unknown"
	}
}

// Authenticator 是监督器依赖的登录能力，换数据源时替换实现。
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*auther.AccountSession, error)
	Probe(ctx context.Context, session *auther.AccountSession, timeout time.Duration) bool
}

// pendingAuth 一次在途的重新登录。并发的EnsureValid共享它的结果，
// 避免同时发多个登录请求把账号锁了。
type pendingAuth struct {
	done chan struct{}
	err  error
}

// Supervisor 持有当前会话，负责探活、到期后用存着的凭据重登一次、登出广播。
type Supervisor struct {
	auth         Authenticator
	store        *store.Store
	probeTimeout time.Duration

	mu      sync.Mutex
	session *auther.AccountSession
	state   State
	pending *pendingAuth
	subs    []chan struct{}
}

func NewSupervisor(auth Authenticator, st *store.Store) *Supervisor {
	s := &Supervisor{
		auth:         auth,
		store:        st,
		probeTimeout: 3 * time.Second,
		state:        NoCredential,
	}
	s.restore()
	return s
}

// restore 启动时尝试恢复上次的会话。失败就当没登录过。
func (s *Supervisor) restore() {
	var sess auther.AccountSession
	if err := s.store.LoadEncrypted(s.store.SessionFile(), &sess); err != nil {
		return
	}
	if sess.Credential.ID == "" || len(sess.Tokens) == 0 {
		return
	}
	s.session = &sess
	s.state = ValidSession
}

// State 当前状态。
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session 取当前会话的快照。未登录返回ErrNotLoggedIn。
func (s *Supervisor) Session() (*auther.AccountSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, auther.ErrNotLoggedIn
	}
	snapshot := *s.session
	snapshot.Tokens = append([]auther.SessionToken(nil), s.session.Tokens...)
	return &snapshot, nil
}

// Login 无论当前什么状态都走完整登录流程，成功后落盘。
func (s *Supervisor) Login(ctx context.Context, username, password string) error {
	sess, err := s.auth.Login(ctx, username, password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.session = sess
	s.state = ValidSession
	s.mu.Unlock()

	if err := s.store.SaveEncrypted(s.store.SessionFile(), sess); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// Logout 清掉凭据和会话并通知订阅者。
func (s *Supervisor) Logout() error {
	s.mu.Lock()
	s.session = nil
	s.state = NoCredential
	subs := append([]chan struct{}(nil), s.subs...)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}

	return s.store.Delete(s.store.SessionFile())
}

// OnLogout 订阅登出事件。
func (s *Supervisor) OnLogout() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// EnsureValid 保证当前会话可用：先探活，失效则用存着的凭据重登一次。
// 并发调用共享同一次在途重登的结果。
func (s *Supervisor) EnsureValid(ctx context.Context) error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return auther.ErrNotLoggedIn
	}
	if p := s.pending; p != nil {
		s.mu.Unlock()
		return s.await(ctx, p)
	}
	sess := s.session
	s.mu.Unlock()

	if s.auth.Probe(ctx, sess, s.probeTimeout) {
		s.mu.Lock()
		s.state = ValidSession
		if s.session != nil {
			s.session.ValidatedAt = time.Now()
		}
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	if p := s.pending; p != nil {
		s.mu.Unlock()
		return s.await(ctx, p)
	}
	if s.session == nil {
		s.mu.Unlock()
		return auther.ErrNotLoggedIn
	}
	s.state = ExpiredSession
	cred := s.session.Credential
	p := &pendingAuth{done: make(chan struct{})}
	s.pending = p
	s.mu.Unlock()

	sess, err := s.auth.Login(ctx, cred.ID, cred.Secret)

	s.mu.Lock()
	if err != nil {
		s.state = ReauthFailed
		p.err = err // 原因原样往上抛，不包装
	} else {
		s.session = sess
		s.state = ValidSession
	}
	s.pending = nil
	s.mu.Unlock()

	if err == nil {
		if perr := s.store.SaveEncrypted(s.store.SessionFile(), sess); perr != nil {
			p.err = fmt.Errorf("failed to persist refreshed session: %w", perr)
		}
	}

	close(p.done)
	return p.err
}

func (s *Supervisor) await(ctx context.Context, p *pendingAuth) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsLoggedIn 是否持有凭据（不代表会话仍然有效）。
func (s *Supervisor) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}
