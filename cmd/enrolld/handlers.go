package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/token"
)

// response is the wire shape shared by all four operations. Optional fields
// are omitted when empty so failure responses stay generic.
type response struct {
	Message        string `json:"message"`
	RequiresChange bool   `json:"requires_change"`
	State          string `json:"state,omitempty"`
	Token          string `json:"token,omitempty"`
	TOTPSecret     string `json:"totp_secret,omitempty"`
	OTPAuthURI     string `json:"otpauth_uri,omitempty"`
	QRPNG          string `json:"qr_png,omitempty"`
}

func newRouter(engine *goEnroll.Engine, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(logger))

	r.Post("/login", handleLogin(engine))
	r.Post("/change-password", handleChangePassword(engine))
	r.Post("/setup-totp", handleSetupTOTP(engine))
	r.Post("/setup-biometric", handleSetupBiometric(engine))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

func handleLogin(engine *goEnroll.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := fields(r)
		res, err := engine.Login(r.Context(), f["username"], f["password"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, response{
			Message:        res.Message,
			RequiresChange: res.RequiresChange,
			State:          res.State.String(),
			Token:          res.Token,
		})
	}
}

func handleChangePassword(engine *goEnroll.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := fields(r)
		res, err := engine.ChangePassword(r.Context(), f["username"], f["old_password"], f["new_password"])
		if err != nil {
			writeError(w, err)
			return
		}

		out := response{
			Message:    res.Message,
			State:      res.State.String(),
			Token:      res.Token,
			TOTPSecret: res.TOTPSecret,
			OTPAuthURI: res.ProvisionURI,
		}
		if res.ProvisionURI != "" && r.URL.Query().Get("qr") == "1" {
			// Rendering failure is not worth failing the rotation over;
			// the caller still has the secret and the URI.
			if png, err := qrcode.Encode(res.ProvisionURI, qrcode.Medium, 256); err == nil {
				out.QRPNG = base64.StdEncoding.EncodeToString(png)
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleSetupTOTP(engine *goEnroll.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := fields(r)
		res, err := engine.SetupTOTP(r.Context(), f["username"], f["totp_code"], bearerToken(r, f))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, response{Message: res.Message, State: res.State.String()})
	}
}

func handleSetupBiometric(engine *goEnroll.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := fields(r)
		res, err := engine.SetupBiometric(r.Context(), f["username"], f["key_material"], bearerToken(r, f))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, response{Message: res.Message, State: res.State.String()})
	}
}

// fields flattens the request body into a string map. JSON objects of string
// fields and form encodings are both accepted; the engine never sees the
// transport framing.
func fields(r *http.Request) map[string]string {
	out := make(map[string]string)

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			for k, v := range body {
				out[k] = v
			}
		}
		return out
	}

	if err := r.ParseForm(); err == nil {
		for k := range r.PostForm {
			out[k] = r.PostForm.Get(k)
		}
	}
	return out
}

// bearerToken prefers the Authorization header and falls back to a body
// field, matching clients that post the proof token as a form value.
func bearerToken(r *http.Request, f map[string]string) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return f["token"]
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Internal error"

	switch {
	case errors.Is(err, goEnroll.ErrInvalidCredentials),
		errors.Is(err, goEnroll.ErrTOTPInvalid),
		errors.Is(err, goEnroll.ErrProofMismatch),
		errors.Is(err, token.ErrExpired),
		errors.Is(err, token.ErrInvalidSignature):
		// One generic message for every guessing-sensitive rejection.
		status, message = http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, goEnroll.ErrUserNotFound):
		status, message = http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, goEnroll.ErrWeakPassword):
		status, message = http.StatusBadRequest, "Password does not meet the strength policy"
	case errors.Is(err, goEnroll.ErrPasswordReuse):
		status, message = http.StatusBadRequest, "New password must differ from the current password"
	case errors.Is(err, goEnroll.ErrAlreadyEnrolled):
		status, message = http.StatusConflict, "Factor already enrolled"
	case errors.Is(err, goEnroll.ErrPrerequisiteNotMet):
		status, message = http.StatusPreconditionFailed, "Complete the previous enrollment step first"
	case errors.Is(err, goEnroll.ErrStoreUnavailable), errors.Is(err, goEnroll.ErrStoreConflict):
		status, message = http.StatusServiceUnavailable, "Temporarily unavailable, retry"
		w.Header().Set("Retry-After", "1")
	}

	writeJSON(w, status, response{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
