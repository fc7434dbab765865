package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"

	"cinefuse/internal/api"
	"cinefuse/internal/catalog"
	"cinefuse/internal/queue"
)

type queueStoreStub struct {
	items []*queue.Item
}

func (s *queueStoreStub) List(context.Context, ...queue.Status) ([]*queue.Item, error) {
	return s.items, nil
}

func (s *queueStoreStub) Stats(context.Context) (map[queue.Status]int, error) {
	return map[queue.Status]int{queue.StatusPending: len(s.items)}, nil
}

func (s *queueStoreStub) GetByID(context.Context, int64) (*queue.Item, error) {
	if len(s.items) == 0 {
		return nil, nil
	}
	return s.items[0], nil
}

type catalogStoreStub struct {
	films []*catalog.Film
}

func (s *catalogStoreStub) List(context.Context, int) ([]*catalog.Film, error) {
	return s.films, nil
}

func (s *catalogStoreStub) Search(context.Context, string, int, int) ([]*catalog.Film, error) {
	return s.films, nil
}

func (s *catalogStoreStub) FilmByTMDBID(_ context.Context, tmdbID int64) (*catalog.Film, error) {
	for _, f := range s.films {
		if f.TMDBID == tmdbID {
			return f, nil
		}
	}
	return nil, nil
}

func (s *catalogStoreStub) CatalogStats(context.Context) (catalog.Stats, error) {
	return catalog.Stats{Films: len(s.films)}, nil
}

func TestAPIServerHandleQueue(t *testing.T) {
	store := &queueStoreStub{items: []*queue.Item{{ID: 1, TMDBID: 603, Title: "The Matrix", Status: queue.StatusPending}}}
	srv := &apiServer{queueSvc: api.NewQueueService(store)}

	req := httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	w := httptest.NewRecorder()
	srv.handleQueue(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.QueueListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(resp.Items))
	}
	if resp.Items[0].Title != "The Matrix" {
		t.Fatalf("unexpected title: %q", resp.Items[0].Title)
	}
}

func TestAPIServerHandleFilms(t *testing.T) {
	store := &catalogStoreStub{films: []*catalog.Film{{TMDBID: 603, Title: "The Matrix", Year: 1999}}}
	srv := &apiServer{filmSvc: api.NewFilmService(store)}

	req := httptest.NewRequest(http.MethodGet, "/api/films", nil)
	w := httptest.NewRecorder()
	srv.handleFilms(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp api.FilmListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Films) != 1 || resp.Films[0].TMDBID != 603 {
		t.Fatalf("unexpected films payload: %#v", resp.Films)
	}
}

func TestAPIServerHandleFilmLookup(t *testing.T) {
	store := &catalogStoreStub{films: []*catalog.Film{{TMDBID: 603, Title: "The Matrix", Year: 1999}}}
	srv := &apiServer{filmSvc: api.NewFilmService(store)}

	req := httptest.NewRequest(http.MethodGet, "/api/films/603", nil)
	w := httptest.NewRecorder()
	srv.handleFilm(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/films/999", nil)
	w = httptest.NewRecorder()
	srv.handleFilm(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown film, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/films/not-a-number", nil)
	w = httptest.NewRecorder()
	srv.handleFilm(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed film id, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	handler := authMiddleware("secret", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with valid token, got %d", w.Code)
	}

	open := authMiddleware("", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w = httptest.NewRecorder()
	open(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected open access without token, got %d", w.Code)
	}
}
