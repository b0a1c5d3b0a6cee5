package signing

import (
	"math"
	"strings"

	"go-signpdf/internal/records"
)

// Request asks for one mark to be drawn onto the PDF at PDFURL. X and Y are
// in UI space (origin top-left). Nil optional fields take their defaults.
type Request struct {
	PDFURL     string
	DocumentID string
	Kind       MarkKind
	Text       string
	FontSize   *int
	ImageData  string
	X          *float64
	Y          *float64
	Page       *int
	Status     string
	CallerID   string
}

// plan is a validated Request.
type plan struct {
	pdfURL     string
	documentID string
	callerID   string
	mark       Mark
	x, y       float64
	page       int
	status     string
}

func (r Request) validate() (*plan, error) {
	if r.PDFURL == "" || strings.TrimSpace(r.DocumentID) == "" || r.CallerID == "" ||
		r.X == nil || r.Y == nil || r.Kind == "" {
		return nil, validationError("Missing required fields")
	}
	if !finite(*r.X) || !finite(*r.Y) {
		return nil, validationError("x and y must be numbers")
	}

	p := &plan{
		pdfURL:     r.PDFURL,
		documentID: strings.TrimSpace(r.DocumentID),
		callerID:   r.CallerID,
		x:          *r.X,
		y:          *r.Y,
		page:       1,
		status:     records.StatusSigned,
	}
	if r.Page != nil {
		p.page = *r.Page
	}
	if p.page < 1 {
		return nil, newError(ErrInvalidPage, "Invalid page number", nil)
	}
	if r.Status != "" {
		if !records.ValidStatus(r.Status) {
			return nil, validationError("status must be one of signed, pending, rejected")
		}
		p.status = r.Status
	}

	switch r.Kind {
	case MarkText:
		if strings.TrimSpace(r.Text) == "" {
			return nil, validationError("Text is required for text signature")
		}
		size := DefaultFontSize
		if r.FontSize != nil {
			size = *r.FontSize
		}
		if size <= 0 {
			return nil, validationError("fontSize must be a positive integer")
		}
		p.mark = Mark{Kind: MarkText, Text: r.Text, FontSize: size}
	case MarkImage:
		if strings.TrimSpace(r.ImageData) == "" {
			return nil, validationError("Base64 image required for image signature")
		}
		data, mediaType, err := DecodeImagePayload(r.ImageData)
		if err != nil {
			return nil, err
		}
		p.mark = Mark{Kind: MarkImage, Image: data, MediaType: mediaType}
	default:
		return nil, validationError("type must be text or image")
	}
	return p, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
