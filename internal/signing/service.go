// Package signing draws signature marks onto PDFs and manages the resulting
// signature records.
//
// Service.Sign runs the signing pipeline strictly in order:
//
//	validate -> fetch source -> load & select page -> map position ->
//	render mark and footer -> serialize -> store artifact -> insert record
//
// and stops at the first failing step. Nothing is written to the record store
// unless the artifact was stored; if inserting the record fails the artifact
// is deleted again.
package signing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	"go-signpdf/internal/pdf"
	"go-signpdf/internal/records"
	"go-signpdf/internal/storage"
)

const (
	UploadFolder = "pdfs"
	SignedFolder = "signed_pdfs"

	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ObjectStore holds uploaded and signed documents.
type ObjectStore interface {
	Put(ctx context.Context, data []byte, folder, name, ext string) (storage.Object, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	Objects  ObjectStore
	Records  records.Store
	Renderer MarkRenderer
}

func NewService(objects ObjectStore, recs records.Store) *Service {
	return &Service{Objects: objects, Records: recs, Renderer: Renderer{}}
}

// Result is returned by a successful Sign.
type Result struct {
	SignedURL string
	PublicID  string
	Record    *records.Record
}

func (s *Service) Sign(ctx context.Context, req Request) (*Result, error) {
	p, err := req.validate()
	if err != nil {
		return nil, err
	}

	src, err := s.Objects.Fetch(ctx, p.pdfURL)
	if err != nil {
		var fe *storage.FetchError
		if errors.As(err, &fe) {
			return nil, newError(ErrSourceFetch, fmt.Sprintf("Failed to fetch PDF: %d", fe.Status), err)
		}
		return nil, newError(ErrSourceFetch, "Failed to fetch PDF", err)
	}

	doc, err := pdf.Load(src)
	if err != nil {
		return nil, newError(ErrInvalidDocument, "Source is not a readable PDF", err)
	}
	pageHeight, err := doc.PageHeight(p.page)
	if err != nil {
		return nil, newError(ErrInvalidPage, "Invalid page number", err)
	}

	at := MapToContentSpace(p.x, p.y, pageHeight)

	if err := s.Renderer.Render(doc, p.page, p.mark, at, p.status); err != nil {
		var se *Error
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, newError(ErrRender, "Failed to render signature", err)
	}

	obj, err := s.Objects.Put(ctx, doc.Bytes(), SignedFolder, "signed", ".pdf")
	if err != nil {
		return nil, newError(ErrStore, "Failed to store signed PDF", err)
	}

	rec, err := s.Records.Insert(ctx, &records.Record{
		DocumentID: p.documentID,
		OwnerID:    p.callerID,
		X:          at.X,
		Y:          at.Y,
		Page:       p.page,
		Status:     p.status,
		SignedURL:  obj.URL,
		StorageID:  obj.ID,
	})
	if err != nil {
		if derr := s.Objects.Delete(context.WithoutCancel(ctx), obj.ID); derr != nil {
			log.Printf("[WARN] orphaned signed PDF %s: %v", obj.ID, derr)
		}
		return nil, newError(ErrStore, "Failed to save signature record", err)
	}

	log.Printf("[INFO] document %s signed by %s on page %d -> %s", p.documentID, p.callerID, p.page, obj.ID)
	return &Result{SignedURL: obj.URL, PublicID: obj.ID, Record: rec}, nil
}

// Upload stores an unsigned PDF after checking its magic bytes.
func (s *Service) Upload(ctx context.Context, data []byte, filename string) (storage.Object, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return storage.Object{}, validationError("Uploaded file is not a valid PDF")
	}
	obj, err := s.Objects.Put(ctx, data, UploadFolder, filename, ".pdf")
	if err != nil {
		return storage.Object{}, newError(ErrStore, "Failed to store PDF", err)
	}
	return obj, nil
}

// Delete removes every record of documentID together with the stored
// artifacts. The caller must own all of them. Artifacts that cannot be
// removed are logged and do not stop the record deletion.
func (s *Service) Delete(ctx context.Context, documentID, callerID string) (int64, error) {
	if documentID == "" {
		return 0, validationError("Document ID is required")
	}
	recs, err := s.Records.FindByDocumentID(ctx, documentID)
	if err != nil {
		return 0, newError(ErrStore, "Failed to look up document", err)
	}
	if len(recs) == 0 {
		return 0, newError(ErrNotFound, "Document not found", nil)
	}
	for _, r := range recs {
		if r.OwnerID != callerID {
			return 0, newError(ErrForbidden, "You are not allowed to delete this document", nil)
		}
	}

	for _, r := range recs {
		if r.StorageID == "" {
			continue
		}
		if err := s.Objects.Delete(ctx, r.StorageID); err != nil {
			log.Printf("[WARN] failed to delete stored PDF %s: %v", r.StorageID, err)
		}
	}

	n, err := s.Records.DeleteByDocumentID(ctx, documentID)
	if err != nil {
		return 0, newError(ErrStore, "Failed to delete document records", err)
	}
	log.Printf("[INFO] document %s deleted by %s (%d records)", documentID, callerID, n)
	return n, nil
}

// List returns the caller's records, newest first.
func (s *Service) List(ctx context.Context, callerID string, opts records.ListOptions) ([]records.Record, error) {
	if opts.Status != "" && !records.ValidStatus(opts.Status) {
		return nil, validationError("status must be one of signed, pending, rejected")
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	recs, err := s.Records.ListByOwner(ctx, callerID, opts)
	if err != nil {
		return nil, newError(ErrStore, "Failed to list signed PDFs", err)
	}
	return recs, nil
}
