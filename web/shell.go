// Package web serves the playground page. A Shell mounts exactly one
// evaluator.Component and starts the runtime bootstrap in the background; the
// page is usable before the runtime is bound.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/oteto/gonkey-playground/bootstrap"
	"github.com/oteto/gonkey-playground/evaluator"
	"github.com/oteto/gonkey-playground/internal/helpers"
	"github.com/oteto/gonkey-playground/platform"
	"github.com/oteto/gonkey-playground/web/middleware"
)

//go:embed templates/page.html
var templates embed.FS

const DefaultTitle = "Gonkey Interpreter Playground!"

var ErrLauncherNil = errors.New("launcher is nil")

var buttonLabels = map[platform.Operation]string{
	platform.Tokenize: "Tokenize",
	platform.Parse:    "Parse",
	platform.Eval:     "Exec",
}

// Shell is the playground page and its API.
type Shell struct {
	slot      *platform.Slot
	component *evaluator.Component
	launcher  bootstrap.Launcher
	page      *template.Template
	title     string
	mux       *http.ServeMux

	handler slog.Handler
	logger  *slog.Logger
}

// Option configures a Shell.
type Option func(*Shell) error

// WithTitle sets the page heading.
func WithTitle(title string) Option {
	return func(s *Shell) error {
		s.title = title
		return nil
	}
}

// WithInitialSource replaces the sample program the page starts with.
func WithInitialSource(source string) Option {
	return func(s *Shell) error {
		s.component.OnSourceEdited(source)
		return nil
	}
}

// New builds a Shell whose runtime is made available by launcher.
func New(handler slog.Handler, launcher bootstrap.Launcher, opts ...Option) (*Shell, error) {
	if launcher == nil {
		return nil, ErrLauncherNil
	}
	handler, logger := helpers.SetupLogger(handler, "web", "Shell")

	page, err := template.New("page.html").
		Funcs(template.FuncMap{"label": func(op platform.Operation) string { return buttonLabels[op] }}).
		ParseFS(templates, "templates/page.html")
	if err != nil {
		return nil, fmt.Errorf("parsing page template: %w", err)
	}

	slot := platform.NewSlot()
	s := &Shell{
		slot:      slot,
		component: evaluator.New(handler, slot),
		launcher:  launcher,
		page:      page,
		title:     DefaultTitle,
		mux:       http.NewServeMux(),
		handler:   handler,
		logger:    logger,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("error applying option: %w", err)
		}
	}
	s.routes()
	return s, nil
}

func (s *Shell) String() string {
	return "web.Shell"
}

// Component returns the mounted component.
func (s *Shell) Component() *evaluator.Component {
	return s.component
}

// Start begins loading the runtime and returns immediately. The channel
// receives the outcome of the bootstrap.
func (s *Shell) Start(ctx context.Context) <-chan error {
	s.logger.InfoContext(ctx, "starting runtime bootstrap")
	return s.launcher.Start(ctx, s.slot)
}

// Close releases the bound runtime, if it holds resources.
func (s *Shell) Close(ctx context.Context) error {
	b, ok := s.slot.Get()
	if !ok {
		return nil
	}
	if c, ok := b.(interface{ Close(context.Context) error }); ok {
		return c.Close(ctx)
	}
	return nil
}

// Handler returns the root handler, wrapped in the request logger.
func (s *Shell) Handler() http.Handler {
	return middleware.RequestLogger(s.handler, s.mux)
}

func (s *Shell) routes() {
	s.mux.HandleFunc("GET /{$}", s.handlePage)
	s.mux.HandleFunc("POST /{$}", s.handleForm)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("POST /api/edit", s.handleEdit)
	s.mux.HandleFunc("POST /api/{operation}", s.handleOperation)
}

type pageData struct {
	Title      string
	State      evaluator.State
	Status     platform.Status
	LoadError  string
	Operations []platform.Operation
}

func (s *Shell) render(w http.ResponseWriter, r *http.Request, state evaluator.State) {
	data := pageData{
		Title:      s.title,
		State:      state,
		Status:     s.slot.Status(),
		Operations: platform.Operations(),
	}
	if err := s.slot.Err(); err != nil {
		data.LoadError = err.Error()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to render page", "error", err)
	}
}

func (s *Shell) handlePage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, s.component.Snapshot())
}

// handleForm applies the submitted source and then runs the pressed action.
func (s *Shell) handleForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	state := s.component.Snapshot()
	if _, ok := r.PostForm["source"]; ok {
		state = s.component.OnSourceEdited(r.PostForm.Get("source"))
	}
	if action := r.PostForm.Get("action"); action != "" {
		op, err := platform.ParseOperation(action)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.component.Trigger(r.Context(), op)
		state = s.component.Snapshot()
	}
	s.render(w, r, state)
}

type editRequest struct {
	Source *string `json:"source"`
}

type stateResponse struct {
	State  evaluator.State `json:"state"`
	Status platform.Status `json:"status"`
}

type operationResponse struct {
	Operation platform.Operation `json:"operation"`
	Output    string             `json:"output"`
	State     evaluator.State    `json:"state"`
	Error     string             `json:"error,omitempty"`
}

type statusResponse struct {
	Status platform.Status `json:"status"`
	Error  string          `json:"error,omitempty"`
}

func (s *Shell) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse{State: s.component.Snapshot(), Status: s.slot.Status()})
}

func (s *Shell) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Status: s.slot.Status()}
	if err := s.slot.Err(); err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Shell) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Source == nil {
		writeJSONError(w, http.StatusBadRequest, "source is required")
		return
	}
	state := s.component.OnSourceEdited(*req.Source)
	writeJSON(w, http.StatusOK, stateResponse{State: state, Status: s.slot.Status()})
}

func (s *Shell) handleOperation(w http.ResponseWriter, r *http.Request) {
	op, err := platform.ParseOperation(r.PathValue("operation"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	out := s.component.Trigger(r.Context(), op)
	resp := operationResponse{
		Operation: op,
		Output:    out.Text,
		State:     s.component.Snapshot(),
	}

	status := http.StatusOK
	switch {
	case errors.Is(out.Err, platform.ErrBindingAbsent):
		status = http.StatusServiceUnavailable
		resp.Error = out.Diagnostic()
	case out.Err != nil:
		status = http.StatusUnprocessableEntity
		resp.Error = out.Diagnostic()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
