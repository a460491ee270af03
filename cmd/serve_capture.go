package cmd

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"formledger/internal/bootstrap/logging"
	"formledger/internal/errs"
)

const signatureHeader = "X-Signature-256"

var (
	errMissingSignature = errors.New("missing signature")
	errInvalidSignature = errors.New("invalid signature")
)

type captureHTTPHandler struct {
	svc          submissionCapturer
	secret       string
	maxBodyBytes int64
}

type captureResponse struct {
	Captured bool   `json:"captured"`
	ID       uint64 `json:"id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type httpErrorResponse struct {
	Error string `json:"error"`
}

func (h *captureHTTPHandler) handleCapture(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithAttrs(r.Context(), slog.String("component", "http.capture"))
	if h.svc == nil {
		writeJSON(w, http.StatusInternalServerError, httpErrorResponse{Error: "capture service is not configured"})
		return
	}

	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	payload, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, httpErrorResponse{Error: "payload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, httpErrorResponse{Error: "read payload failed"})
		return
	}

	if err := validateSignature(h.secret, r.Header.Get(signatureHeader), payload); err != nil {
		logging.Warn(ctx, "capture webhook rejected", slog.Any("err", errs.Loggable(err)))
		writeJSON(w, http.StatusUnauthorized, httpErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.svc.Capture(ctx, payload)
	if err != nil {
		logging.Error(ctx, "capture webhook failed", slog.Any("err", errs.Loggable(err)))
		writeJSON(w, http.StatusInternalServerError, httpErrorResponse{Error: "submission not stored"})
		return
	}
	if !result.Captured {
		writeJSON(w, http.StatusAccepted, captureResponse{Reason: result.Reason})
		return
	}
	writeJSON(w, http.StatusOK, captureResponse{Captured: true, ID: result.Record.ID})
}

// validateSignature checks "sha256=<hex>" against the body. An empty secret
// disables the check.
func validateSignature(secret string, signature string, payload []byte) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}

	signature = strings.TrimSpace(signature)
	if signature == "" {
		return errMissingSignature
	}
	hexDigest, ok := strings.CutPrefix(signature, "sha256=")
	if !ok {
		return errInvalidSignature
	}
	got, err := hex.DecodeString(hexDigest)
	if err != nil {
		return errInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return errInvalidSignature
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
