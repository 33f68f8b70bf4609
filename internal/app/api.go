package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/activity"
	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/aggregate"
	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/fetch"
	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/githubapi"
	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/health"
	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/telemetry"
)

const (
	sessionCookieName = "gitpulse_session"
	stateCookieName   = "gitpulse_oauth_state"
)

type ctxKey int

const sessionCtxKey ctxKey = iota

// Handler assembles the full HTTP surface.
func (r *Runtime) Handler() http.Handler {
	router := chi.NewRouter()
	traceMode := telemetry.Mode()
	healthHandler := health.NewHandler(r)

	router.Handle("/metrics", wrapHTTPHandler(traceMode, "metrics", r.metrics.Handler()))
	router.Handle("/livez", wrapHTTPHandler(traceMode, "livez", healthHandler))
	router.Handle("/readyz", wrapHTTPHandler(traceMode, "readyz", healthHandler))
	router.Handle("/healthz", wrapHTTPHandler(traceMode, "healthz", healthHandler))

	router.Route("/auth", func(auth chi.Router) {
		auth.Get("/login", r.handleOAuthLogin)
		auth.Get("/callback", r.handleOAuthCallback)
		auth.Post("/logout", r.handleLogout)
	})

	var api http.Handler = r.apiRouter()
	api = wrapHTTPHandler(traceMode, "api", api)
	router.Mount("/api", api)
	return router
}

func (r *Runtime) apiRouter() chi.Router {
	api := chi.NewRouter()
	api.Post("/token", r.handleTokenLogin)

	api.Group(func(authed chi.Router) {
		authed.Use(r.requireSession)
		authed.Get("/user", r.handleCurrentUser)
		authed.Get("/user/orgs", r.handleUserOrgs)
		authed.Get("/orgs/{org}/repos", r.handleOrgRepos)
		authed.Get("/orgs/{org}/users/{login}/activities", r.handleUserActivities)
		authed.Get("/orgs/{org}/repos/{repo}/activities", r.handleRepoActivities)
		authed.Get("/orgs/{org}/team/activities", r.handleTeamActivities)
		authed.Get("/users/{login}/events", r.handleUserEvents)
		authed.Get("/fetches/{id}/progress", r.handleFetchProgress)
	})
	return api
}

// requireSession resolves the caller's GitHub token: session cookie first,
// then a bearer header, then the shared service token in token/app modes.
func (r *Runtime) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if cookie, err := req.Cookie(sessionCookieName); err == nil {
			if sess, ok := r.sessions.lookup(cookie.Value); ok {
				next.ServeHTTP(w, req.WithContext(withSession(req.Context(), sess)))
				return
			}
		}

		if header := req.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token != "" {
				next.ServeHTTP(w, req.WithContext(withSession(req.Context(), session{Token: token})))
				return
			}
		}

		if token, ok := r.serviceToken(req.Context()); ok {
			next.ServeHTTP(w, req.WithContext(withSession(req.Context(), session{Token: token})))
			return
		}

		writeError(w, http.StatusUnauthorized, "authentication required")
	})
}

func withSession(ctx context.Context, sess session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, sess)
}

func sessionFrom(ctx context.Context) session {
	sess, _ := ctx.Value(sessionCtxKey).(session)
	return sess
}

func (r *Runtime) handleTokenLogin(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || strings.TrimSpace(body.Token) == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	token := strings.TrimSpace(body.Token)
	user, err := r.service.ValidateToken(req.Context(), token)
	r.noteGitHubOutcome(err)
	if err != nil {
		r.logger.Info("token login rejected", zap.String("token", redact(token)), zap.Error(err))
		r.writeGitHubError(w, req, err)
		return
	}

	id := r.sessions.create(token, user.Login)
	setSessionCookie(w, id)
	writeJSON(w, http.StatusOK, user)
}

func (r *Runtime) handleOAuthLogin(w http.ResponseWriter, req *http.Request) {
	if r.oauth == nil {
		writeError(w, http.StatusNotFound, "oauth login is not configured")
		return
	}

	state := newRandomID()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, req, r.oauth.AuthCodeURL(state), http.StatusFound)
}

func (r *Runtime) handleOAuthCallback(w http.ResponseWriter, req *http.Request) {
	if r.oauth == nil {
		writeError(w, http.StatusNotFound, "oauth login is not configured")
		return
	}

	stateCookie, err := req.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != req.URL.Query().Get("state") {
		writeError(w, http.StatusBadRequest, "oauth state mismatch")
		return
	}

	code := req.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing oauth code")
		return
	}

	exchanged, err := r.oauth.Exchange(req.Context(), code)
	if err != nil {
		r.logger.Warn("oauth exchange failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "oauth code exchange failed")
		return
	}

	user, err := r.service.ValidateToken(req.Context(), exchanged.AccessToken)
	r.noteGitHubOutcome(err)
	if err != nil {
		r.writeGitHubError(w, req, err)
		return
	}

	id := r.sessions.create(exchanged.AccessToken, user.Login)
	setSessionCookie(w, id)
	http.Redirect(w, req, "/", http.StatusFound)
}

func (r *Runtime) handleLogout(w http.ResponseWriter, req *http.Request) {
	if cookie, err := req.Cookie(sessionCookieName); err == nil {
		r.sessions.drop(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (r *Runtime) handleCurrentUser(w http.ResponseWriter, req *http.Request) {
	sess := sessionFrom(req.Context())
	user, err := r.service.ValidateToken(req.Context(), sess.Token)
	r.noteGitHubOutcome(err)
	if err != nil {
		r.writeGitHubError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (r *Runtime) handleUserOrgs(w http.ResponseWriter, req *http.Request) {
	sess := sessionFrom(req.Context())
	orgs, cached, err := r.service.FetchUserOrgs(req.Context(), sess.Token, sess.Login)
	r.noteGitHubOutcome(err)
	if err != nil {
		r.writeGitHubError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orgs": orgs, "cached": cached})
}

func (r *Runtime) handleOrgRepos(w http.ResponseWriter, req *http.Request) {
	sess := sessionFrom(req.Context())
	org := chi.URLParam(req, "org")

	repos, cached, err := r.service.FetchOrgRepos(req.Context(), sess.Token, org)
	r.noteGitHubOutcome(err)
	if err != nil {
		r.writeGitHubError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"repos": repos, "cached": cached})
}

func (r *Runtime) handleUserActivities(w http.ResponseWriter, req *http.Request) {
	sess := sessionFrom(req.Context())
	org := chi.URLParam(req, "org")
	login := chi.URLParam(req, "login")

	keep, err := typeFilterFrom(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := r.service.FetchUserActivities(req.Context(), sess.Token, org, login, r.progressSink(req))
	r.noteGitHubOutcome(err)
	if err != nil {
		r.writeGitHubError(w, req, err)
		return
	}
	result.Activities = aggregate.FilterByType(result.Activities, keep)
	r.writeActivityResult(w, result)
}

func (r *Runtime) handleRepoActivities(w http.ResponseWriter, req *http.Request) {
	sess := sessionFrom(req.Context())
	org := chi.URLParam(req, "org")
	repo := chi.URLParam(req, "repo")

	keep, err := typeFilterFrom(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := r.service.FetchRepoActivities(req.Context(), sess.Token, org, repo, r.progressSink(req))
	r.noteGitHubOutcome(err)
	if err != nil {
		r.writeGitHubError(w, req, err)
		return
	}
	result.Activities = aggregate.FilterByType(result.Activities, keep)
	r.writeActivityResult(w, result)
}

func (r *Runtime) handleTeamActivities(w http.ResponseWriter, req *http.Request) {
	sess := sessionFrom(req.Context())
	org := chi.URLParam(req, "org")

	keep, err := typeFilterFrom(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := r.service.FetchTeamActivities(req.Context(), sess.Token, org, r.progressSink(req))
	r.noteGitHubOutcome(err)
	if err != nil {
		r.writeGitHubError(w, req, err)
		return
	}
	result.Activities = aggregate.FilterByType(result.Activities, keep)
	r.writeActivityResult(w, result)
}

func (r *Runtime) handleUserEvents(w http.ResponseWriter, req *http.Request) {
	sess := sessionFrom(req.Context())
	login := chi.URLParam(req, "login")

	activities, cached, err := r.service.FetchUserEvents(req.Context(), sess.Token, login)
	r.noteGitHubOutcome(err)
	if err != nil {
		r.writeGitHubError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": activities, "cached": cached})
}

func (r *Runtime) handleFetchProgress(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	progress, exists := r.progress.get(id)
	if !exists {
		writeError(w, http.StatusNotFound, "unknown fetch id")
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// progressSink registers emissions under the caller-chosen progress_id so
// a parallel poll of /api/fetches/{id}/progress can follow along. Without
// the parameter, emissions are discarded.
func (r *Runtime) progressSink(req *http.Request) fetch.ProgressSink {
	id := strings.TrimSpace(req.URL.Query().Get("progress_id"))
	if id == "" {
		return nil
	}
	return fetch.SinkFunc(func(progress activity.Progress) {
		r.progress.record(id, progress)
	})
}

// typeFilterFrom parses the optional types query parameter into the set of
// activity types to keep. Unknown names are rejected instead of silently
// matching nothing.
func typeFilterFrom(req *http.Request) (map[activity.Type]bool, error) {
	raw := strings.TrimSpace(req.URL.Query().Get("types"))
	if raw == "" {
		return nil, nil
	}

	keep := make(map[activity.Type]bool)
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		parsed := activity.ParseType(name)
		if parsed == activity.TypeUnknown && !strings.EqualFold(name, string(activity.TypeUnknown)) {
			return nil, fmt.Errorf("unknown activity type %q", name)
		}
		keep[parsed] = true
	}
	return keep, nil
}

// writeActivityResult serves one fetch result. A view cut short by the
// rate limiter keeps its completed units in the body but answers 429 with
// a Retry-After hint, so consumers can tell "back off and retry" apart
// from an ordinary partial view.
func (r *Runtime) writeActivityResult(w http.ResponseWriter, result fetch.ActivityResult) {
	status := http.StatusOK
	if result.RateLimited {
		if !result.RetryAt.IsZero() {
			if retryAfter := int(time.Until(result.RetryAt).Seconds()); retryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			}
		}
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, result)
}

// writeGitHubError maps the typed error taxonomy onto HTTP statuses.
func (r *Runtime) writeGitHubError(w http.ResponseWriter, req *http.Request, err error) {
	var rateErr *githubapi.RateLimitError
	if errors.As(err, &rateErr) {
		if !rateErr.ResetAt.IsZero() {
			retryAfter := int(time.Until(rateErr.ResetAt).Seconds())
			if retryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			}
		}
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	}

	if githubapi.IsAuth(err) {
		// The token is dead; the session bound to it is too.
		if cookie, cookieErr := req.Cookie(sessionCookieName); cookieErr == nil {
			r.sessions.drop(cookie.Value)
		}
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var apiErr *githubapi.APIError
	if errors.As(err, &apiErr) {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusGatewayTimeout, "request cancelled")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
