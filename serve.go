package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JNighthawk/bdotools-conversation-solver/internal/catalog"
	"github.com/JNighthawk/bdotools-conversation-solver/internal/solver"
	"github.com/JNighthawk/bdotools-conversation-solver/internal/store"
)

// ── HTTP read API ───────────────────────────────────────────────────
//
// Only stored results are served. A miss is a 404; solving stays with the CLI.

func (r *Runner) router() http.Handler {
	rt := chi.NewRouter()
	rt.Use(middleware.Recoverer)
	rt.Use(cors.Handler(cors.Options{
		AllowedOrigins: r.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         60 * 15,
	}))

	rt.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	rt.Get("/goals", r.handleGoals)
	rt.Route("/targets", func(rr chi.Router) {
		rr.Get("/", r.handleTargets)
		rr.Get("/{name}/results", r.handleResults)
	})
	return rt
}

func writeJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := writeJSON(w, v); err != nil {
		fmt.Fprintf(logw(), "[serve] write response: %v\n", err)
	}
}

func (r *Runner) handleGoals(w http.ResponseWriter, _ *http.Request) {
	cat, err := r.cfg.catalogue()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, goalInfos(cat))
}

type targetInfo struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	Constellation int    `json:"constellation"`
	InterestMin   int    `json:"interestMin"`
	InterestMax   int    `json:"interestMax"`
	FavorMin      int    `json:"favorMin"`
	FavorMax      int    `json:"favorMax"`
}

func (r *Runner) handleTargets(w http.ResponseWriter, _ *http.Request) {
	targets := r.cat.SortedTargets()
	out := make([]targetInfo, 0, len(targets))
	for _, t := range targets {
		info := targetInfo{
			ID:            t.ID,
			Name:          t.Name,
			Constellation: t.ConstellationID,
			InterestMin:   t.InterestMin,
			InterestMax:   t.InterestMax,
			FavorMin:      t.FavorMin,
			FavorMax:      t.FavorMax,
		}
		if c, ok := r.cat.Categories[t.CategoryID]; ok {
			info.Category = c.Name
		}
		out = append(out, info)
	}
	writeJSONResponse(w, http.StatusOK, out)
}

// handleResults serves GET /targets/{name}/results?interest=&favor=[&goal=&param=][&fast=].
// Without goal every stored cell of the key is listed.
func (r *Runner) handleResults(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	t, err := r.cat.FindTarget(chi.URLParam(req, "name"))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, catalog.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	interest, err := strconv.Atoi(q.Get("interest"))
	if err != nil {
		http.Error(w, "interest: "+err.Error(), http.StatusBadRequest)
		return
	}
	favor, err := strconv.Atoi(q.Get("favor"))
	if err != nil {
		http.Error(w, "favor: "+err.Error(), http.StatusBadRequest)
		return
	}
	mode := solver.ModeExhaustive
	if v := q.Get("fast"); v != "" {
		fast, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "fast: "+err.Error(), http.StatusBadRequest)
			return
		}
		if fast {
			mode = solver.ModeFast
		}
	}
	j := newJob(t, interest, favor, mode)

	if q.Get("goal") == "" {
		results, err := r.store.Results(req.Context(), j.key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out := r.resultInfos(results, store.MinVersion(mode))
		if len(out) == 0 {
			http.Error(w, fmt.Sprintf("%s %s: %v", t.Name, j.key, store.ErrNotFound), http.StatusNotFound)
			return
		}
		writeJSONResponse(w, http.StatusOK, out)
		return
	}

	goal, err := solver.ParseGoal(q.Get("goal"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	param := 0
	if v := q.Get("param"); v != "" {
		if param, err = strconv.Atoi(v); err != nil {
			http.Error(w, "param: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	cat, err := r.cfg.catalogue()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := cat.CheckParam(goal, param); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	best, err := r.store.FetchResult(req.Context(), j.key, goal, param, store.MinVersion(mode))
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, r.cellResult(j, goal, param, best, true))
}

// serve runs the read API until ctx is cancelled, then drains in-flight requests.
func (r *Runner) serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	fmt.Fprintf(logw(), "[serve] listening on %s\n", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	fmt.Fprintf(logw(), "[serve] stopped\n")
	return nil
}
