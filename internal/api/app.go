// Package api serves the todo boards over HTTP.
package api

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/timada-org/todoboard/internal/events"
	"github.com/timada-org/todoboard/internal/kv"
	"github.com/timada-org/todoboard/internal/sse"
	"github.com/timada-org/todoboard/internal/todo"
	"github.com/timada-org/todoboard/pkg/topic"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	defaultKeepAlive = 25 * time.Second
	maxFormMemory    = 1 << 20
)

type Options struct {
	Store kv.Store
	Bus   *events.Bus
	// Auth is optional; when nil actions are open to anyone.
	Auth      *Auth
	Logger    zerolog.Logger
	KeepAlive time.Duration
}

type App struct {
	store     kv.Store
	bus       *events.Bus
	auth      *Auth
	server    *sse.Server
	logger    zerolog.Logger
	templates *template.Template
	keepAlive time.Duration
}

func New(options Options) (*App, error) {
	if options.Store == nil {
		return nil, errors.New("api: store is required")
	}

	if options.Bus == nil {
		return nil, errors.New("api: bus is required")
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{"row": newRow}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	keepAlive := options.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}

	server := sse.New(options.Bus)
	server.KeepAlive = keepAlive

	return &App{
		store:     options.Store,
		bus:       options.Bus,
		auth:      options.Auth,
		server:    server,
		logger:    options.Logger,
		templates: tmpl,
		keepAlive: keepAlive,
	}, nil
}

// Handler returns the application routes wrapped with request logging.
func (app *App) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/", app.newList())
	router.GET("/:id", app.page("board", boardPath))
	router.POST("/:id", app.action(boardPath))
	router.GET("/:id/dnd", app.page("dnd", dndPath))
	router.POST("/:id/dnd", app.action(dndPath))
	router.GET("/:id/dnd/stream", app.stream())
	router.GET("/:id/events", app.server.HandleFunc(listFilter))

	// httprouter cannot mix /healthz with the /:id wildcard
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/", router)

	var h http.Handler = mux
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(h)
	h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
	h = hlog.NewHandler(app.logger)(h)

	return h
}

// Serve listens on addr until ctx is done, then shuts the server down.
func (app *App) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func boardPath(listID string) string {
	return "/" + listID
}

func dndPath(listID string) string {
	return "/" + listID + "/dnd"
}

func listFilter(_ *http.Request, p httprouter.Params) ([]*topic.Filter, error) {
	f, err := topic.ListFilter(p.ByName("id"))
	if err != nil {
		return nil, err
	}
	return []*topic.Filter{f}, nil
}

func (app *App) newList() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id, err := gonanoid.New()
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("list id")
			http.Error(w, "Internal server error.", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, boardPath(id), http.StatusSeeOther)
	}
}

func (app *App) page(name string, path func(string) string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		logger := hlog.FromRequest(r)
		listID := p.ByName("id")

		board, err := todo.NewManager(app.store, listID).ListByColumn(r.Context())
		if err != nil {
			logger.Error().Err(err).Str("list", listID).Msg("load board")
			http.Error(w, "Internal server error.", http.StatusInternalServerError)
			return
		}

		var buf bytes.Buffer
		if err := app.templates.ExecuteTemplate(&buf, name, newPage(listID, path(listID), board)); err != nil {
			logger.Error().Err(err).Str("template", name).Msg("render")
			http.Error(w, "Internal server error.", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = buf.WriteTo(w)
	}
}

func (app *App) action(path func(string) string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		logger := hlog.FromRequest(r)
		listID := p.ByName("id")

		if app.auth != nil {
			if _, err := app.auth.UserID(r); err != nil {
				logger.Debug().Err(err).Msg("unauthorized action")
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
				return
			}
		}

		// url-encoded bodies are parsed too, reported as ErrNotMultipart
		if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			app.writeErr(w, r, listID, todo.ErrInvalidIntent)
			return
		}

		in, err := todo.ParseIntent(r.PostForm)
		if err != nil {
			app.writeErr(w, r, listID, err)
			return
		}

		change, err := todo.Apply(r.Context(), todo.NewManager(app.store, listID), in)
		if err != nil {
			app.writeErr(w, r, listID, err)
			return
		}

		app.publish(r, listID, change)

		if wantsHTML(r) {
			http.Redirect(w, r, path(listID), http.StatusSeeOther)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// publish notifies the other views of the list. A failure only delays their
// refresh, so it is logged and the action still succeeds.
func (app *App) publish(r *http.Request, listID string, change todo.Change) {
	logger := hlog.FromRequest(r)

	event, err := events.NewItemEvent(listID, change.Name, change.ItemID)
	if err != nil {
		logger.Debug().Err(err).Str("list", listID).Msg("no event for change")
		return
	}

	if err := app.bus.Publish(r.Context(), event); err != nil {
		logger.Error().Err(err).Str("list", listID).Str("event", change.Name).Msg("publish")
	}
}

func (app *App) writeErr(w http.ResponseWriter, r *http.Request, listID string, err error) {
	var input *todo.InputError
	if errors.As(err, &input) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": input.Message})
		return
	}

	hlog.FromRequest(r).Error().Err(err).Str("list", listID).Msg("action failed")
	writeJSON(w, http.StatusInternalServerError, map[string]bool{"success": false})
}

// stream keeps the drag and drop board in sync by patching #board whenever
// the list changes.
func (app *App) stream() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		logger := hlog.FromRequest(r)
		listID := p.ByName("id")

		filter, err := topic.ListFilter(listID)
		if err != nil {
			http.Error(w, "Bad request.", http.StatusBadRequest)
			return
		}

		sub, err := app.bus.Subscribe(filter)
		if err != nil {
			http.Error(w, "Internal server error.", http.StatusInternalServerError)
			return
		}
		defer sub.Close()

		manager := todo.NewManager(app.store, listID)
		gen := datastar.NewSSE(w, r)

		patch := func() error {
			board, err := manager.ListByColumn(gen.Context())
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := app.templates.ExecuteTemplate(&buf, "dnd_board", newPage(listID, dndPath(listID), board)); err != nil {
				return err
			}

			return gen.PatchElements(buf.String(), datastar.WithSelector("#board"), datastar.WithMode(datastar.ElementPatchModeOuter))
		}

		if err := patch(); err != nil {
			logger.Error().Err(err).Str("list", listID).Msg("patch board")
			return
		}

		ticker := time.NewTicker(app.keepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-gen.Context().Done():
				return
			case <-sub.Events():
				if err := patch(); err != nil {
					logger.Error().Err(err).Str("list", listID).Msg("patch board")
					_ = gen.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
				}
			case <-ticker.C:
				if err := gen.PatchSignals([]byte("{}")); err != nil {
					return
				}
			}
		}
	}
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
