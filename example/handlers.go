package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/anvil"
	"github.com/dmitrymomot/anvil/pkg/container"
)

var errBadToken = errors.New("invalid API token")

// staticToken accepts a single shared bearer token.
func staticToken(token string) func(ctx context.Context, credential string) (any, error) {
	return func(_ context.Context, credential string) (any, error) {
		if subtle.ConstantTimeCompare([]byte(credential), []byte(token)) != 1 {
			return nil, errBadToken
		}
		return "api-client", nil
	}
}

type Note struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

// NoteStore keeps notes in memory.
type NoteStore struct {
	notes map[string]Note
	mu    sync.RWMutex
}

func NewNoteStore() *NoteStore {
	return &NoteStore{notes: make(map[string]Note)}
}

func (s *NoteStore) List() []Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b Note) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (s *NoteStore) Get(id string) (Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	return n, ok
}

func (s *NoteStore) Add(body string) Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := Note{ID: uuid.NewString(), Body: body}
	s.notes[n.ID] = n
	return n
}

// Pages serves the HTML side of the app.
type Pages struct{}

func (p *Pages) Routes(r anvil.Router) {
	r.Group(anvil.GroupAttributes{Middleware: []string{"web"}}, func(r anvil.Router) {
		r.GET("/", anvil.Func(p.home)).Name("home")
		r.GET("/boom", anvil.Func(p.boom))
	})
}

func (p *Pages) home(c anvil.Context) (any, error) {
	notes, err := anvil.Resolve[*NoteStore](c)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("<h1>Notes</h1><ul>")
	for _, n := range notes.List() {
		fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(n.Body))
	}
	b.WriteString("</ul>")
	return b.String(), nil
}

func (p *Pages) boom(c anvil.Context) (any, error) {
	panic("the boom page always fails")
}

// NotesAPI serves the JSON API.
type NotesAPI struct{}

func (a *NotesAPI) Routes(r anvil.Router) {
	r.Group(anvil.GroupAttributes{Prefix: "/api/notes", Name: "notes.", Middleware: []string{"stateless"}}, func(r anvil.Router) {
		r.GET("/", anvil.Func(a.list)).Name("index")
		r.GET("/{id}", anvil.Method("show", (*NoteController).Show)).WhereUUID("id").Name("show")
		r.POST("/", anvil.Func(a.create)).Middleware("auth").Name("store")
	})
}

func (a *NotesAPI) list(c anvil.Context) (any, error) {
	notes, err := anvil.Resolve[*NoteStore](c)
	if err != nil {
		return nil, err
	}
	return notes.List(), nil
}

func (a *NotesAPI) create(c anvil.Context) (any, error) {
	var in struct {
		Body string `json:"body" validate:"required,max=2000"`
	}
	if err := decodeJSON(c, &in); err != nil {
		return nil, anvil.ErrBadRequest("Malformed JSON body", anvil.WithError(err))
	}
	in.Body = strings.TrimSpace(in.Body)
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	notes, err := anvil.Resolve[*NoteStore](c)
	if err != nil {
		return nil, err
	}
	return created(notes.Add(in.Body)), nil
}

// created answers 201 with the note as JSON.
func created(n Note) anvil.ResponderFunc {
	return func(c anvil.Context) error {
		c.SetHeader("Location", "/api/notes/"+n.ID)
		return c.JSON(http.StatusCreated, n)
	}
}

func decodeJSON(c anvil.Context, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(c.Response(), c.Request().Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NoteController is built per request with the id path parameter.
type NoteController struct {
	notes *NoteStore
	id    string
}

func (n *NoteController) Inject(r *container.Resolver) error {
	id, err := container.Arg[string](r, "id")
	if err != nil {
		return err
	}
	n.id = id
	n.notes, err = container.Get[*NoteStore](r)
	return err
}

func (n *NoteController) Show(c anvil.Context) (any, error) {
	note, ok := n.notes.Get(n.id)
	if !ok {
		return nil, anvil.ErrNotFound("Note not found")
	}
	return note, nil
}
