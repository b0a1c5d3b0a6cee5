package signing

// VerticalInset shifts a mark down so that its visual anchor matches the
// point the user clicked in the UI.
const VerticalInset = 10.0

// Point is a position in PDF content space (origin bottom-left).
type Point struct {
	X float64
	Y float64
}

// MapToContentSpace converts a top-left-origin UI position into content space
// for a page of the given height.
func MapToContentSpace(uiX, uiY, pageHeight float64) Point {
	return Point{X: uiX, Y: pageHeight - uiY - VerticalInset}
}
