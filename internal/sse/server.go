// Package sse streams change events to browsers as server sent events.
package sse

import (
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/hlog"

	"github.com/timada-org/todoboard/internal/events"
	"github.com/timada-org/todoboard/pkg/topic"
)

const defaultKeepAlive = 25 * time.Second

// FilterFunc selects the topics a new session subscribes to.
type FilterFunc func(r *http.Request, p httprouter.Params) ([]*topic.Filter, error)

type Server struct {
	mux       sync.RWMutex
	bus       *events.Bus
	sessions  map[string]*Session
	KeepAlive time.Duration
}

func New(bus *events.Bus) *Server {
	return &Server{
		bus:       bus,
		sessions:  make(map[string]*Session),
		KeepAlive: defaultKeepAlive,
	}
}

func (s *Server) HandleFunc(filters FilterFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		logger := hlog.FromRequest(r)

		fs, err := filters(r, p)
		if err != nil {
			http.Error(w, "Bad request.", http.StatusBadRequest)
			return
		}

		id, err := gonanoid.New()
		if err != nil {
			http.Error(w, "Internal server error.", http.StatusInternalServerError)
			return
		}

		sub, err := s.bus.Subscribe(fs...)
		if err != nil {
			http.Error(w, "Internal server error.", http.StatusInternalServerError)
			return
		}
		defer sub.Close()

		session := newSession(id, sub)

		s.mux.Lock()
		s.sessions[id] = session
		s.mux.Unlock()

		defer func() {
			s.mux.Lock()
			delete(s.sessions, id)
			s.mux.Unlock()
		}()

		logger.Debug().Str("session", id).Msg("sse session opened")

		if err := session.listen(w, r, s.KeepAlive); err != nil {
			logger.Debug().Err(err).Str("session", id).Msg("sse session ended")
		}
	}
}

// Len returns the number of connected sessions.
func (s *Server) Len() int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return len(s.sessions)
}
