package transport

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/lkpmandiri/backoffice/internal/observability"
	"github.com/lkpmandiri/backoffice/model"
)

// loginRequest is the credential payload from the login form.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse carries the minted session token and the user document.
type loginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// handleLogin exchanges credentials for a session. The backend bearer token
// stays server-side; the frontend only ever sees the minted session token.
func handleLogin(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeBody(r, &req); err != nil {
			WriteError(w, err)
			return
		}
		if req.Email == "" || req.Password == "" {
			WriteError(w, model.NewBadRequestError("Email and password are required"))
			return
		}

		result, err := deps.Client.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			observability.RequestLogger(r.Context(), deps.Logger).Warn("login rejected",
				zap.String("email", req.Email))
			WriteError(w, err)
			return
		}

		token, sess, err := deps.Sessions.Issue(r.Context(), result)
		if err != nil {
			deps.Logger.Error("session issue failed", zap.Error(err))
			WriteError(w, model.NewInternalError())
			return
		}
		if deps.Metrics != nil {
			deps.Metrics.RecordSessionIssued()
		}
		deps.Logger.Info("login",
			zap.String("email", result.User.Email),
			zap.String("session_id", sess.ID))

		WriteJSON(w, http.StatusOK, loginResponse{Token: token, User: result.User})
	}
}

// handleLogout revokes the backend token and clears the session. Backend
// revocation is best effort; the local session always goes.
func handleLogout(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.MustRequestContext(r.Context())

		if err := deps.Client.Logout(r.Context()); err != nil {
			observability.RequestLogger(r.Context(), deps.Logger).Warn("backend logout failed",
				zap.Error(err))
		}
		if err := deps.Sessions.Clear(r.Context(), rctx.SessionID); err != nil {
			WriteError(w, model.NewInternalError())
			return
		}
		if deps.Metrics != nil {
			deps.Metrics.RecordSessionCleared("logout")
		}

		WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
	}
}

// handleSession is the per-mount guard: it re-verifies the backend token with
// a live whoami call. A 401 from the backend clears the session through the
// api client hook before the error reaches the frontend.
func handleSession(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := deps.Client.Me(r.Context())
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]model.User{"user": user})
	}
}
