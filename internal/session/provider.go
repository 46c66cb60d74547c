package session

import (
	"context"
	"log"
	"sync"
	"time"

	"chatsync/internal/dbmysql"
	"chatsync/internal/user"
)

// Provider resolves the session into a stored identity and republishes it on
// every session-state change. The identity is passed to consumers explicitly;
// there is no package-level state.
type Provider struct {
	source Source
	users  user.UserService

	mu       sync.RWMutex
	identity *dbmysql.User

	updates chan *dbmysql.User
	done    chan struct{}
	once    sync.Once
}

func NewProvider(source Source, users user.UserService) *Provider {
	return &Provider{
		source:  source,
		users:   users,
		updates: make(chan *dbmysql.User, 8),
		done:    make(chan struct{}),
	}
}

// Start resolves the current session once and then follows the source's
// event stream until Close.
func (p *Provider) Start(ctx context.Context) error {
	sess, err := p.source.Current(ctx)
	if err != nil {
		return err
	}
	p.resolve(ctx, sess)

	go p.loop()
	return nil
}

func (p *Provider) loop() {
	for {
		select {
		case <-p.done:
			return
		case event, ok := <-p.source.Events():
			if !ok {
				return
			}
			if event.Kind == SignedOut {
				// Cleared immediately, no lookup.
				p.publish(nil)
				continue
			}
			p.resolve(context.Background(), event.Session)
		}
	}
}

// resolve provisions the identity row if needed and publishes the result. If
// provisioning fails the provider falls back to a synthesized identity built
// from session claims so the caller stays usable; the row is not persisted.
func (p *Provider) resolve(ctx context.Context, sess *Session) {
	if sess == nil {
		p.publish(nil)
		return
	}

	identity, err := p.users.EnsureUser(ctx, sess.UserID, sess.Email, sess.FullName)
	if err != nil {
		log.Printf("session: ensure identity %s failed, using claims only: %v", sess.UserID, err)
		now := time.Now().UTC()
		identity = &dbmysql.User{
			ID:        sess.UserID,
			Email:     sess.Email,
			FullName:  sess.FullName,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if identity.FullName == "" {
			identity.FullName = "User"
		}
	}

	p.publish(identity)
}

func (p *Provider) publish(identity *dbmysql.User) {
	p.mu.Lock()
	p.identity = identity
	p.mu.Unlock()

	select {
	case p.updates <- identity:
	default:
	}
}

// Identity returns the currently published identity, nil when signed out.
func (p *Provider) Identity() *dbmysql.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.identity
}

// Updates emits the identity after every re-resolution.
func (p *Provider) Updates() <-chan *dbmysql.User {
	return p.updates
}

func (p *Provider) Close() {
	p.once.Do(func() {
		close(p.done)
	})
}
