package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/mutcache/auth"
	"github.com/jonwraymond/mutcache/contacts"
	"github.com/jonwraymond/mutcache/health"
	"github.com/jonwraymond/mutcache/inspect"
	"github.com/jonwraymond/mutcache/mutation"
	"github.com/jonwraymond/mutcache/observe"
)

func (c *CLI) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inspector and accept mutations over HTTP",
		Long: `Serve exposes the mutation cache over HTTP until interrupted:

  GET  /entries, /entries/{id}, /events, /healthz   inspector
  GET  /readyz, /health                              readiness checks
  GET  /circuit                                      guard state
  POST /contacts/{id}/delete                         start a delete
  POST /contacts/{id}/favorite[?on=false]            start a favorite change

Mutations are started detached and answered with 202; poll the inspector for
their outcome. When api_keys is configured the POST routes require one of the
keys in X-API-Key or an Authorization bearer header.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			s, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.close()) }()

			ln, err := net.Listen("tcp", s.cfg.Listen)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			srv := &http.Server{
				Handler:           newServeMux(s),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx := cmd.Context()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "listening on http://%s\n", ln.Addr())
			s.logger.Info(ctx, "serving", observe.Field{Key: "addr", Value: ln.Addr().String()})

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(ln) }()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
			}
			return printListing(cmd.OutOrStdout(), s.inspector, s.cfg.Output)
		},
	}

	cmd.Flags().StringVar(&c.overrides.Listen, "listen", "", "Address to listen on")
	return cmd
}

// accepted is the body of a 202 answer.
type accepted struct {
	Entry string `json:"entry"`
	Key   string `json:"key"`
}

type circuitView struct {
	State       string    `json:"state"`
	Failures    int       `json:"failures"`
	Refused     int64     `json:"refused"`
	OpenedAt    time.Time `json:"openedAt,omitzero"`
	LastFailure string    `json:"lastFailure,omitempty"`
}

func newServeMux(s *session) *http.ServeMux {
	mux := http.NewServeMux()
	inspect.RegisterHandlers(mux, s.inspector)
	health.RegisterHandlers(mux, s.checks)

	del := mutation.NewMultiMutation(s.cache, contacts.DeleteDefinition(s.api, s.guard))
	fav := mutation.NewMultiMutation(s.cache, contacts.FavoriteDefinition(s.api, s.guard, nil))

	mux.Handle("POST /contacts/{id}/delete", s.protect(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		key := contacts.InvocationKey(id)
		s.requested(r, "delete", key)
		if err := del.Mutate(r.Context(), key, id); err != nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusAccepted, accepted{Entry: del.Entry().ID(), Key: key})
	}))

	mux.Handle("POST /contacts/{id}/favorite", s.protect(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		on := true
		if raw := r.URL.Query().Get("on"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid on: " + raw})
				return
			}
			on = v
		}
		key := contacts.InvocationKey(id)
		s.requested(r, "favorite", key)
		if err := fav.Mutate(r.Context(), key, contacts.FavoriteVars{ID: id, Favorite: on}); err != nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusAccepted, accepted{Entry: fav.Entry().ID(), Key: key})
	}))

	mux.HandleFunc("GET /circuit", func(w http.ResponseWriter, _ *http.Request) {
		st := s.breaker.Stats()
		v := circuitView{
			State:    st.State.String(),
			Failures: st.Failures,
			Refused:  st.Refused,
			OpenedAt: st.OpenedAt,
		}
		if st.LastFailure != nil {
			v.LastFailure = st.LastFailure.Error()
		}
		writeJSON(w, http.StatusOK, v)
	})

	return mux
}

// protect requires an API key when the session has any configured.
func (s *session) protect(h http.HandlerFunc) http.Handler {
	return auth.RequireAPIKey(s.keys, h)
}

func (s *session) requested(r *http.Request, kind, key string) {
	fields := []observe.Field{
		{Key: "mutation", Value: kind},
		{Key: "key", Value: key},
	}
	if id := auth.KeyIDFromContext(r.Context()); id != "" {
		fields = append(fields, observe.Field{Key: "api_key", Value: id})
	}
	s.logger.Info(r.Context(), "mutation requested", fields...)
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	ids, err := parseIDs([]string{r.PathValue("id")})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return 0, false
	}
	return ids[0], true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
