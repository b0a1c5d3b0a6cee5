// Package pdf provides the PDF manipulation primitives used for signing.
//
// Types:
//   - Document: an in-memory PDF with its page geometry.
//     Created with Load from raw bytes; stamped in place with StampText and
//     StampImage; serialized with Bytes; inspected with PageContent.
//
// Coordinates passed to the stamp functions are PDF content space points
// (origin bottom-left, 72 points = 1 inch) and address the lower-left corner
// of the stamped box.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrPageOutOfRange is returned when a page number is outside [1, PageCount].
var ErrPageOutOfRange = errors.New("page out of range")

// TextStyle describes how StampText draws a line of text.
type TextStyle struct {
	FontName string // one of the 14 standard PDF fonts, e.g. Helvetica
	Points   int
	Color    string // #RRGGBB
}

type Document struct {
	data []byte
	dims []types.Dim
	conf *model.Configuration
}

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Load parses data and reads the geometry of every page.
func Load(data []byte) (*Document, error) {
	conf := newConfiguration()
	ctx, err := pdfapi.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	if err := pdfapi.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to validate PDF: %w", err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	if len(dims) == 0 {
		return nil, errors.New("PDF has no pages")
	}
	return &Document{data: data, dims: dims, conf: conf}, nil
}

func (d *Document) PageCount() int {
	return len(d.dims)
}

// PageHeight returns the height in points of the 1-based page.
func (d *Document) PageHeight(page int) (float64, error) {
	if page < 1 || page > len(d.dims) {
		return 0, fmt.Errorf("%w: %d not in [1, %d]", ErrPageOutOfRange, page, len(d.dims))
	}
	return d.dims[page-1].Height, nil
}

// StampText draws text on page with its lower-left corner at (x, y).
func (d *Document) StampText(page int, text string, style TextStyle, x, y float64) error {
	if _, err := d.PageHeight(page); err != nil {
		return err
	}
	desc := fmt.Sprintf("fontname:%s, points:%d, fillcolor:%s, position:bl, offset:%s %s, rotation:0, scalefactor:1 abs, opacity:1",
		style.FontName, style.Points, style.Color, formatPoints(x), formatPoints(y))
	wm, err := pdfapi.TextWatermark(text, desc, true, false, types.POINTS)
	if err != nil {
		return fmt.Errorf("failed to parse text stamp: %w", err)
	}
	return d.apply(page, wm)
}

// StampImage draws the PNG or JPEG read from img on page with its lower-left
// corner at (x, y). scale is applied to the native pixel size of the image,
// one pixel mapping to one point.
func (d *Document) StampImage(page int, img io.Reader, x, y, scale float64) error {
	if _, err := d.PageHeight(page); err != nil {
		return err
	}
	desc := fmt.Sprintf("position:bl, offset:%s %s, rotation:0, scalefactor:%s abs, opacity:1",
		formatPoints(x), formatPoints(y), strconv.FormatFloat(scale, 'f', -1, 64))
	wm, err := pdfapi.ImageWatermarkForReader(img, desc, true, false, types.POINTS)
	if err != nil {
		return fmt.Errorf("failed to parse image stamp: %w", err)
	}
	return d.apply(page, wm)
}

func (d *Document) apply(page int, wm *model.Watermark) error {
	var out bytes.Buffer
	pages := []string{strconv.Itoa(page)}
	if err := pdfapi.AddWatermarks(bytes.NewReader(d.data), &out, pages, wm, d.conf); err != nil {
		return fmt.Errorf("failed to apply stamp: %w", err)
	}
	d.data = out.Bytes()
	return nil
}

// Bytes returns the serialized document including every applied stamp.
func (d *Document) Bytes() []byte {
	return d.data
}

// PageContent returns the decoded content stream of the 1-based page.
func (d *Document) PageContent(page int) ([]byte, error) {
	if _, err := d.PageHeight(page); err != nil {
		return nil, err
	}
	ctx, err := pdfapi.ReadValidateAndOptimize(bytes.NewReader(d.data), newConfiguration())
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	r, err := pdfcpu.ExtractPageContent(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("failed to extract page content: %w", err)
	}
	return io.ReadAll(r)
}

func formatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
