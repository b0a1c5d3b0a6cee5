package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"net/mail"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-signpdf/internal/auth"
	mailer "go-signpdf/internal/mail"
	"go-signpdf/internal/records"
	"go-signpdf/internal/signing"
	"go-signpdf/internal/storage"
)

// UploadPDF godoc
// @Summary      Upload a PDF file
// @Description  Stores an unsigned PDF and returns its public URL
// @Tags         pdf
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "PDF file"
// @Success      200  {object}  map[string]interface{}  "{ success: true, url: string, public_id: string }"
// @Failure      400  {object}  map[string]interface{}  "{ success: false, message: string }"
// @Router       /api/v1/pdf/upload [post]
func (h *APIHandler) UploadPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if strings.ToLower(filepath.Ext(header.Filename)) != ".pdf" {
		writeError(w, http.StatusBadRequest, "Only PDF files are allowed")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	obj, err := h.Signer.Upload(r.Context(), data, header.Filename)
	if err != nil {
		writeSigningError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"url":       obj.URL,
		"public_id": obj.ID,
	})
}

type signRequest struct {
	PDFURL     string `json:"pdfUrl"`
	DocumentID string `json:"documentId"`
	Type       string `json:"type"`
	Text       string `json:"text"`
	FontSize   number `json:"fontSize"`
	ImageData  string `json:"imageData"`
	X          number `json:"x"`
	Y          number `json:"y"`
	Page       number `json:"page"`
	Status     string `json:"status"`
}

// SignPDF godoc
// @Summary      Sign a PDF
// @Description  Draws a text or image signature plus a status footer onto one page of the PDF at pdfUrl, stores the result and records it
// @Tags         pdf
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path    string  true  "Document ID, used when the body has no documentId"
// @Param        request  body    object  true  "{ pdfUrl, documentId, type, text, fontSize, imageData, x, y, page, status }"
// @Success      200  {object}  map[string]interface{}  "{ success: true, signedUrl: string, public_id: string }"
// @Failure      400  {object}  map[string]interface{}  "{ success: false, message: string }"
// @Failure      401  {object}  map[string]interface{}  "{ success: false, message: string }"
// @Failure      502  {object}  map[string]interface{}  "{ success: false, message: string }"
// @Router       /api/v1/pdf/sign/{id} [post]
func (h *APIHandler) SignPDF(w http.ResponseWriter, r *http.Request) {
	var body signRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if body.X.invalid || body.Y.invalid {
		writeError(w, http.StatusBadRequest, "x and y must be numbers")
		return
	}
	page, ok := body.Page.int()
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid page number")
		return
	}
	fontSize, ok := body.FontSize.truncated()
	if !ok {
		writeError(w, http.StatusBadRequest, "fontSize must be a positive integer")
		return
	}

	documentID := body.DocumentID
	if strings.TrimSpace(documentID) == "" {
		documentID = chi.URLParam(r, "id")
	}

	res, err := h.Signer.Sign(r.Context(), signing.Request{
		PDFURL:     body.PDFURL,
		DocumentID: documentID,
		Kind:       signing.MarkKind(body.Type),
		Text:       body.Text,
		FontSize:   fontSize,
		ImageData:  body.ImageData,
		X:          body.X.float(),
		Y:          body.Y.float(),
		Page:       page,
		Status:     body.Status,
		CallerID:   auth.CallerID(r.Context()),
	})
	if err != nil {
		writeSigningError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"signedUrl": res.SignedURL,
		"public_id": res.PublicID,
		"signature": res.Record,
	})
}

// PreviewPDF godoc
// @Summary      Preview a stored PDF
// @Description  Streams a stored PDF inline
// @Tags         pdf
// @Produce      application/pdf
// @Param        file  query  string  true  "Storage ID (public_id)"
// @Success      200  {file}  file  "PDF file"
// @Failure      400  {object}  map[string]interface{}  "{ success: false, message: string }"
// @Failure      404  {object}  map[string]interface{}  "{ success: false, message: string }"
// @Router       /api/v1/pdf/preview [get]
func (h *APIHandler) PreviewPDF(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("file")
	if id == "" {
		writeError(w, http.StatusBadRequest, "File path is required")
		return
	}
	h.serveObject(w, r, id)
}

// ServeFile serves the public URL of a stored object.
func (h *APIHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	h.serveObject(w, r, chi.URLParam(r, "*"))
}

func (h *APIHandler) serveObject(w http.ResponseWriter, r *http.Request, id string) {
	f, err := h.Files.Open(id)
	switch {
	case errors.Is(err, storage.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "Invalid file")
		return
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "File not found")
		return
	case err != nil:
		log.Printf("[ERROR] failed to open %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	name := path.Base(id)
	if strings.EqualFold(path.Ext(name), ".pdf") {
		w.Header().Set("Content-Type", "application/pdf")
	}
	w.Header().Set("Content-Disposition", "inline; filename=\""+name+"\"")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// DeletePDF godoc
// @Summary      Delete a signed document
// @Description  Deletes every signature record of the document and the stored signed PDFs. The caller must own all of them.
// @Tags         pdf
// @Produce      json
// @Security     BearerAuth
// @Param        documentId  path  string  true  "Document ID"
// @Success      200  {object}  map[string]interface{}  "{ success: true, message: string }"
// @Failure      403  {object}  map[string]interface{}  "{ success: false, message: string }"
// @Failure      404  {object}  map[string]interface{}  "{ success: false, message: string }"
// @Router       /api/v1/pdf/delete/{documentId} [delete]
func (h *APIHandler) DeletePDF(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentId")
	if unescaped, err := url.PathUnescape(documentID); err == nil {
		documentID = unescaped
	}
	n, err := h.Signer.Delete(r.Context(), documentID, auth.CallerID(r.Context()))
	if err != nil {
		writeSigningError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Document deleted successfully",
		"deleted": n,
	})
}

// EmailPDF godoc
// @Summary      Email a signed PDF
// @Description  Sends a link to a signed PDF to the given address
// @Tags         pdf
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body  object  true  "{ fileUrl: string, toEmail: string }"
// @Success      200  {object}  map[string]interface{}  "{ success: true, message: string }"
// @Failure      400  {object}  map[string]interface{}  "{ success: false, message: string }"
// @Failure      502  {object}  map[string]interface{}  "{ success: false, message: string }"
// @Router       /api/v1/pdf/email [post]
func (h *APIHandler) EmailPDF(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FileURL string `json:"fileUrl"`
		ToEmail string `json:"toEmail"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if body.FileURL == "" || body.ToEmail == "" {
		writeError(w, http.StatusBadRequest, "Missing fileUrl or toEmail")
		return
	}
	if addr, err := mail.ParseAddress(body.ToEmail); err != nil || addr.Address != body.ToEmail {
		writeError(w, http.StatusBadRequest, "Please Enter a valid Email")
		return
	}
	if u, err := url.Parse(body.FileURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeError(w, http.StatusBadRequest, "fileUrl must be an http or https URL")
		return
	}

	msg, err := mailer.SignedDocument(body.ToEmail, body.FileURL)
	if err != nil {
		writeSigningError(w, r, err)
		return
	}
	if err := h.Mailer.Send(r.Context(), msg); err != nil {
		writeSigningError(w, r, &signing.Error{Kind: signing.ErrMail, Message: "Failed to send email", Err: err})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Email sent successfully"})
}

// ListSignedPDFs godoc
// @Summary      List signed PDFs
// @Description  Lists the caller's signature records, newest first
// @Tags         pdf
// @Produce      json
// @Security     BearerAuth
// @Param        status  query  string  false  "signed, pending or rejected"
// @Param        page    query  int     false  "Page, starting at 1"
// @Param        limit   query  int     false  "Page size, at most 100"
// @Success      200  {object}  map[string]interface{}  "{ success: true, files: [] }"
// @Failure      400  {object}  map[string]interface{}  "{ success: false, message: string }"
// @Router       /api/v1/pdf/list [get]
func (h *APIHandler) ListSignedPDFs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := records.ListOptions{Status: q.Get("status")}
	for _, p := range []struct {
		key string
		dst *int
	}{{"page", &opts.Page}, {"limit", &opts.Limit}} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, p.key+" must be a positive integer")
			return
		}
		*p.dst = n
	}

	files, err := h.Signer.List(r.Context(), auth.CallerID(r.Context()), opts)
	if err != nil {
		writeSigningError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "files": files})
}
