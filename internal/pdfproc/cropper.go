package pdfproc

import (
	"fmt"
	"image"
	"image/draw"
)

// Segment is an axis-aligned rectangle in page-pixel coordinates,
// caller-supplied and immutable.
type Segment struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect returns the segment as an image.Rectangle.
func (s Segment) Rect() image.Rectangle {
	return image.Rect(s.Left, s.Top, s.Left+s.Width, s.Top+s.Height)
}

// OutOfBoundsError reports the first segment whose bounds exceed the
// raster's extent. Segments are never silently clamped: a clamped crop has
// a smaller silhouette than requested and would corrupt the caller's
// bounding-box semantics.
type OutOfBoundsError struct {
	Index   int
	Segment Segment
	Bounds  image.Rectangle
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("segment %d (%d,%d %dx%d) exceeds raster bounds %dx%d",
		e.Index, e.Segment.Left, e.Segment.Top, e.Segment.Width, e.Segment.Height,
		e.Bounds.Dx(), e.Bounds.Dy())
}

// CropSegments extracts one cropped image per segment, preserving input
// order. Any segment outside the raster fails the whole call with an
// OutOfBoundsError for the first offending segment; no partial result is
// returned. Crops are copied into fresh buffers so they do not alias the
// raster.
func CropSegments(raster *PageRaster, segments []Segment) ([]*image.RGBA, error) {
	bounds := raster.Image.Bounds()

	for i, seg := range segments {
		if seg.Width < 0 || seg.Height < 0 || !seg.Rect().In(bounds) {
			return nil, &OutOfBoundsError{Index: i, Segment: seg, Bounds: bounds}
		}
	}

	crops := make([]*image.RGBA, 0, len(segments))
	for _, seg := range segments {
		dst := image.NewRGBA(image.Rect(0, 0, seg.Width, seg.Height))
		draw.Draw(dst, dst.Bounds(), raster.Image, bounds.Min.Add(image.Pt(seg.Left, seg.Top)), draw.Src)
		crops = append(crops, dst)
	}

	return crops, nil
}
