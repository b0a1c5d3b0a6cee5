package signing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"strings"

	xdraw "golang.org/x/image/draw"

	"go-signpdf/internal/pdf"
)

type MarkKind string

const (
	MarkText  MarkKind = "text"
	MarkImage MarkKind = "image"
)

// Image marks always occupy ImageMarkWidth x ImageMarkHeight points; the
// source image is stretched to that box regardless of its aspect ratio.
const (
	ImageMarkWidth  = 120
	ImageMarkHeight = 40

	// imageDensity is the number of pixels per point the stretched image is
	// resampled to.
	imageDensity = 4
)

const (
	DefaultFontSize = 12

	FooterX        = 50.0
	FooterY        = 20.0
	FooterFontSize = 10
)

var (
	markStyle   = pdf.TextStyle{FontName: "Helvetica", Color: "#000000"}
	footerStyle = pdf.TextStyle{FontName: "Helvetica-Bold", Points: FooterFontSize, Color: "#808080"}
)

// Mark is a validated text or image mark.
type Mark struct {
	Kind      MarkKind
	Text      string
	FontSize  int
	Image     []byte
	MediaType string // image/png or image/jpeg
}

// MarkRenderer draws a mark and the status footer onto one page.
type MarkRenderer interface {
	Render(doc *pdf.Document, page int, mark Mark, at Point, status string) error
}

// Renderer is the pdfcpu backed MarkRenderer.
type Renderer struct{}

func (Renderer) Render(doc *pdf.Document, page int, mark Mark, at Point, status string) error {
	switch mark.Kind {
	case MarkText:
		style := markStyle
		style.Points = mark.FontSize
		if err := doc.StampText(page, mark.Text, style, at.X, at.Y); err != nil {
			return newError(ErrRender, "Text embed failed", err)
		}
	case MarkImage:
		img, err := stretchImage(mark.Image)
		if err != nil {
			return newError(ErrRender, "Image embed failed", err)
		}
		if err := doc.StampImage(page, img, at.X, at.Y, 1.0/imageDensity); err != nil {
			return newError(ErrRender, "Image embed failed", err)
		}
	default:
		return validationError("unknown signature type %q", mark.Kind)
	}

	footer := fmt.Sprintf("Status: %s", status)
	if err := doc.StampText(page, footer, footerStyle, FooterX, FooterY); err != nil {
		return newError(ErrRender, "Status footer failed", err)
	}
	return nil
}

// stretchImage decodes a PNG or JPEG and resamples it to the fixed mark box.
func stretchImage(data []byte) (*bytes.Buffer, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, ImageMarkWidth*imageDensity, ImageMarkHeight*imageDensity))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &buf, nil
}

// DecodeImagePayload accepts a base64 data URL or bare base64 and returns the
// image bytes with their media type. Data URLs are judged by their declared
// media type, bare base64 by its leading bytes. Anything but PNG and JPEG
// fails with ErrUnsupportedFormat.
func DecodeImagePayload(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, "", validationError("Base64 image required for image signature")
	}

	if rest, ok := cutPrefixFold(payload, "data:"); ok {
		header, encoded, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", validationError("Malformed image data URL")
		}
		params := strings.Split(header, ";")
		mediaType := canonicalMediaType(params[0])
		if mediaType == "" {
			return nil, "", newError(ErrUnsupportedFormat, "Unsupported image format", nil)
		}
		if !strings.EqualFold(params[len(params)-1], "base64") {
			return nil, "", validationError("Image data URL must be base64 encoded")
		}
		data, err := decodeBase64(encoded)
		if err != nil {
			return nil, "", validationError("Image data is not valid base64")
		}
		return data, mediaType, nil
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return nil, "", validationError("Image data is not valid base64")
	}
	mediaType := canonicalMediaType(http.DetectContentType(data))
	if mediaType == "" {
		return nil, "", newError(ErrUnsupportedFormat, "Unsupported image format", nil)
	}
	return data, mediaType, nil
}

func canonicalMediaType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "image/png":
		return "image/png"
	case "image/jpeg", "image/jpg":
		return "image/jpeg"
	}
	return ""
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
