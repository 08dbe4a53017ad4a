package contacts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakeAPI is an in-memory contacts collection served under /contacts.
type fakeAPI struct {
	mu       sync.Mutex
	contacts map[int]Contact
	nextID   int
	requests []string
	failGet  map[int]bool
}

func newFakeAPI(t *testing.T, seed ...Contact) (*fakeAPI, *Client) {
	t.Helper()
	f := &fakeAPI{contacts: make(map[int]Contact), failGet: make(map[int]bool)}
	for _, c := range seed {
		f.contacts[c.ID] = c
		f.nextID = max(f.nextID, c.ID)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /contacts", f.list)
	mux.HandleFunc("POST /contacts", f.create)
	mux.HandleFunc("GET /contacts/{id}", f.get)
	mux.HandleFunc("PATCH /contacts/{id}", f.patch)
	mux.HandleFunc("DELETE /contacts/{id}", f.remove)

	srv := httptest.NewServer(f.record(mux))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL + "/contacts")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return f, client
}

func (f *fakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.RequestURI())
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *fakeAPI) sorted() []Contact {
	out := make([]Contact, 0, len(f.contacts))
	for _, c := range f.contacts {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Contact) int { return a.ID - b.ID })
	return out
}

func (f *fakeAPI) list(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := r.URL.Query()
	var matches []Contact
	for _, c := range f.sorted() {
		if text := q.Get("q"); text != "" && !strings.Contains(strings.ToLower(c.FullName()+" "+c.Bio), strings.ToLower(text)) {
			continue
		}
		if fav := q.Get("isFavorite"); fav != "" && strconv.FormatBool(c.IsFavorite) != fav {
			continue
		}
		matches = append(matches, c)
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(matches)))

	if limit, _ := strconv.Atoi(q.Get("_limit")); limit > 0 {
		page, _ := strconv.Atoi(q.Get("_page"))
		start := max(page-1, 0) * limit
		end := min(start+limit, len(matches))
		if start >= len(matches) {
			matches = nil
		} else {
			matches = matches[start:end]
		}
	}
	if matches == nil {
		matches = []Contact{}
	}
	writeJSONBody(w, http.StatusOK, matches)
}

func (f *fakeAPI) create(w http.ResponseWriter, r *http.Request) {
	var info Info
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.nextID++
	c := Contact{ID: f.nextID, Info: info, CreatedAt: "now", UpdatedAt: "now"}
	f.contacts[c.ID] = c
	f.mu.Unlock()
	writeJSONBody(w, http.StatusCreated, c)
}

func (f *fakeAPI) lookup(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return 0, false
	}
	if _, ok := f.contacts[id]; !ok {
		writeJSONBody(w, http.StatusNotFound, map[string]string{})
		return 0, false
	}
	return id, true
}

func (f *fakeAPI) get(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.lookup(w, r)
	if !ok {
		return
	}
	if f.failGet[id] {
		http.Error(w, "Failed to fetch", http.StatusInternalServerError)
		return
	}
	writeJSONBody(w, http.StatusOK, f.contacts[id])
}

func (f *fakeAPI) patch(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.lookup(w, r)
	if !ok {
		return
	}
	var p Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	c := f.contacts[id]
	if p.FirstName != nil {
		c.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		c.LastName = *p.LastName
	}
	if p.Bio != nil {
		c.Bio = *p.Bio
	}
	if p.PhotoURL != nil {
		c.PhotoURL = *p.PhotoURL
	}
	if p.IsFavorite != nil {
		c.IsFavorite = *p.IsFavorite
	}
	c.UpdatedAt = "later"
	f.contacts[id] = c
	writeJSONBody(w, http.StatusOK, c)
}

func (f *fakeAPI) remove(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.lookup(w, r)
	if !ok {
		return
	}
	delete(f.contacts, id)
	writeJSONBody(w, http.StatusOK, map[string]string{})
}

func (f *fakeAPI) has(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.contacts[id]
	return ok
}

func (f *fakeAPI) lastRequest() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return ""
	}
	return f.requests[len(f.requests)-1]
}

func writeJSONBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var (
	ada   = Contact{ID: 1, Info: Info{FirstName: "Ada", LastName: "Lovelace", Bio: "analyst", IsFavorite: true}}
	alan  = Contact{ID: 2, Info: Info{FirstName: "Alan", LastName: "Turing", Bio: "codebreaker"}}
	grace = Contact{ID: 3, Info: Info{FirstName: "Grace", LastName: "Hopper", Bio: "compiler pioneer"}}
)
