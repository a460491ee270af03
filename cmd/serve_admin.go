package cmd

import (
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"formledger/internal/bootstrap/logging"
	"formledger/internal/domain/access"
	"formledger/internal/domain/submission"
	"formledger/internal/errs"
	"formledger/internal/infrastructure/auth"
	"formledger/internal/usecase/export"
)

const (
	exportPagePath   = "/admin/export"
	emptyExportQuery = "export=empty"
	emptyExportText  = "No submissions matched your export filter."
)

var exportPage = template.Must(template.New("export").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Export submissions</title></head>
<body>
<h1>Export submissions</h1>
{{if .Empty}}<p class="notice">{{.EmptyText}}</p>{{end}}
<form method="post" action="{{.Action}}">
  <input type="hidden" name="nonce" value="{{.Nonce}}">
  <label>From <input type="date" name="from"></label>
  <label>To <input type="date" name="to"></label>
  <label>Form title <input type="text" name="form_title"></label>
  <label>Limit <input type="number" name="limit" min="1" placeholder="{{.DefaultLimit}}"></label>
  <button type="submit">Download CSV</button>
</form>
</body>
</html>
`))

type exportPageData struct {
	Action       string
	Nonce        string
	Empty        bool
	EmptyText    string
	DefaultLimit int
}

type adminHTTPHandler struct {
	svc          submissionExporter
	nonces       *auth.Issuer
	maxBodyBytes int64
}

func (h *adminHTTPHandler) exportPage(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFrom(r.Context())
	if err := access.RequireAdministrator(principal); err != nil {
		writeAdminError(w, r, err)
		return
	}

	nonce, err := h.nonces.IssueNonce(principal.Subject, auth.ActionExportSubmissions)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	err = exportPage.Execute(w, exportPageData{
		Action:       exportPagePath,
		Nonce:        nonce,
		Empty:        r.URL.Query().Get("export") == "empty",
		EmptyText:    emptyExportText,
		DefaultLimit: submission.DefaultExportLimit,
	})
	if err != nil {
		logging.Error(r.Context(), "render export page failed", slog.Any("err", errs.Loggable(err)))
	}
}

func (h *adminHTTPHandler) exportDownload(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithAttrs(r.Context(), slog.String("component", "http.export"))
	principal := auth.PrincipalFrom(ctx)
	if err := access.RequireAdministrator(principal); err != nil {
		writeAdminError(w, r, err)
		return
	}

	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	if err := r.ParseForm(); err != nil {
		writeAdminError(w, r, errs.E(errs.CodeInvalidRequest, err, "parse export form"))
		return
	}
	if err := h.nonces.VerifyNonce(r.PostForm.Get("nonce"), principal.Subject, auth.ActionExportSubmissions); err != nil {
		writeAdminError(w, r, err)
		return
	}

	exp, err := h.svc.Prepare(ctx, principal, submission.ExportParams{
		From:      r.PostForm.Get("from"),
		To:        r.PostForm.Get("to"),
		FormTitle: r.PostForm.Get("form_title"),
		Limit:     r.PostForm.Get("limit"),
	})
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	if exp.Empty() {
		http.Redirect(w, r, exportPagePath+"?"+emptyExportQuery, http.StatusSeeOther)
		return
	}

	setDownloadHeaders(w.Header(), exp.Filename)
	w.WriteHeader(http.StatusOK)
	if err := exp.WriteCSV(w); err != nil {
		logging.Error(ctx, "stream export failed", slog.Any("err", errs.Loggable(err)))
	}
}

func setDownloadHeaders(h http.Header, filename string) {
	h.Set("Content-Type", "text/csv; charset=utf-8")
	h.Set("Content-Disposition", "attachment; filename="+filename)
	h.Set("Cache-Control", "no-cache, must-revalidate, max-age=0, no-store, private")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "Wed, 11 Jan 1984 05:00:00 GMT")
}

func (h *adminHTTPHandler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	items, err := h.svc.List(r.Context(), auth.PrincipalFrom(r.Context()), export.ListInput{
		FormTitle: query.Get("form_title"),
		Limit:     query.Get("limit"),
	})
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"submissions": items,
		"count":       len(items),
	})
}

func (h *adminHTTPHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(strings.TrimSpace(chi.URLParam(r, "id")), 10, 64)
	if err != nil {
		writeAdminError(w, r, errs.E(errs.CodeNotFound, err, "parse submission id"))
		return
	}

	detail, err := h.svc.Get(r.Context(), auth.PrincipalFrom(r.Context()), id)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// writeAdminError maps coded errors to the admin responses. JSON clients get
// a JSON body; browsers get plain text.
func writeAdminError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "Internal server error."
	switch errs.CodeOf(err) {
	case errs.CodeUnauthenticated:
		status, msg = http.StatusUnauthorized, "Authentication required."
	case errs.CodeForbidden:
		status, msg = http.StatusForbidden, "Insufficient permissions."
	case errs.CodeInvalidRequest:
		status, msg = http.StatusBadRequest, "Invalid request."
	case errs.CodeNotFound:
		status, msg = http.StatusNotFound, "Submission not found."
	}

	attrs := []slog.Attr{slog.Int("status", status), slog.Any("err", errs.Loggable(err))}
	if status == http.StatusInternalServerError {
		logging.Error(r.Context(), "admin request failed", attrs...)
	} else {
		logging.Info(r.Context(), "admin request refused", attrs...)
	}

	if strings.HasPrefix(r.URL.Path, "/admin/submissions") {
		writeJSON(w, status, httpErrorResponse{Error: msg})
		return
	}
	http.Error(w, msg, status)
}
