package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/timada-org/todoboard/internal/events"
)

type Session struct {
	ID  string
	sub *events.Subscription
}

func newSession(id string, sub *events.Subscription) *Session {
	return &Session{ID: id, sub: sub}
}

func (s *Session) listen(w http.ResponseWriter, r *http.Request, keepAlive time.Duration) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported.", http.StatusInternalServerError)
		return errors.New("response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := write(w, &Event{Topic: SYSSessionTopic, Name: SYSSessionCreated, Data: s.ID}); err != nil {
		return err
	}
	flusher.Flush()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-s.sub.Events():
			if !ok {
				return nil
			}
			if err := write(w, &Event{Topic: e.Topic.Value, Name: e.Name, Data: e.Data}); err != nil {
				return err
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return err
			}
			flusher.Flush()

		case <-r.Context().Done():
			return r.Context().Err()
		}
	}
}

func write(w io.Writer, e *Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "data: %s\n\n", b)
	return err
}
