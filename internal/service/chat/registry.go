package chat

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrViewNotFound = errors.New("view not found")

// View describes one open page view.
type View struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remoteAddr"`
	Recognition string    `json:"recognition"`
	Synthesis   string    `json:"synthesis"`
	OpenedAt    time.Time `json:"openedAt"`
}

// Registry tracks the page views currently connected. Conversations
// themselves live only inside each view's controller.
type Registry struct {
	mu    sync.RWMutex
	views map[string]View
}

// NewRegistry bootstraps an empty registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string]View)}
}

// Open registers a view and assigns its identifier.
func (r *Registry) Open(view View) View {
	view.ID = uuid.NewString()
	view.OpenedAt = time.Now().UTC()

	r.mu.Lock()
	r.views[view.ID] = view
	r.mu.Unlock()

	return view
}

// Close forgets a view.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.views[id]; !ok {
		return ErrViewNotFound
	}
	delete(r.views, id)
	return nil
}

// Get retrieves a view by identifier.
func (r *Registry) Get(id string) (View, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	view, ok := r.views[id]
	if !ok {
		return View{}, ErrViewNotFound
	}
	return view, nil
}

// Count returns the number of open views.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}

// List returns open views, oldest first.
func (r *Registry) List() []View {
	r.mu.RLock()
	views := make([]View, 0, len(r.views))
	for _, view := range r.views {
		views = append(views, view)
	}
	r.mu.RUnlock()

	sort.Slice(views, func(i, j int) bool {
		return views[i].OpenedAt.Before(views[j].OpenedAt)
	})
	return views
}
