package session

import (
	"log"
	"sync"

	"motoroute/auth"
	dbt "motoroute/db/db"
	"motoroute/route"
	"motoroute/trip"
)

// Registry keeps one Session per signed-in user, created at sign-in and torn
// down at sign-out.
type Registry struct {
	agg   *route.Aggregator
	trips *trip.Manager

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(agg *route.Aggregator, trips *trip.Manager) *Registry {
	return &Registry{
		agg:      agg,
		trips:    trips,
		sessions: make(map[string]*Session),
	}
}

// Attach subscribes the registry to a's session changes.
func (r *Registry) Attach(a *auth.Service) {
	a.OnSessionChange(r.Observe)
}

func (r *Registry) Observe(ev auth.SessionEvent) {
	if ev.Principal == nil {
		return
	}
	switch ev.Kind {
	case auth.SignedIn:
		settings := dbt.DefaultUserSettings()
		if ev.Profile != nil {
			settings = ev.Profile.Settings
		}
		r.Open(ev.Principal.UserID, settings)
	case auth.SignedOut:
		r.Close(ev.Principal.UserID)
	}
}

// Open returns the user's session, creating it when absent.
func (r *Registry) Open(userID string, settings dbt.UserSettings) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[userID]; ok {
		return s
	}
	s := New(userID, settings, r.agg, r.trips)
	r.sessions[userID] = s
	log.Printf("Opened editing session for %s", userID)
	return s
}

func (r *Registry) Get(userID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	return s, ok
}

func (r *Registry) Close(userID string) {
	r.mu.Lock()
	s, ok := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()

	if ok {
		s.Close()
		log.Printf("Closed editing session for %s", userID)
	}
}

// CloseAll tears down every session, e.g. on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
