package domain

// Bitmap is a width x height grid of exposure flags loaded from one slice image.
// Pix is row-major; Pix[r*Width+c] is true when the pixel is exposed.
type Bitmap struct {
	// Index is the position of the bitmap in the run (0-based, filename order)
	Index int

	// Name is the source file name
	Name string

	Width  int
	Height int
	Pix    []bool
}

// NewBitmap allocates an unexposed bitmap.
func NewBitmap(index int, name string, width, height int) Bitmap {
	return Bitmap{
		Index:  index,
		Name:   name,
		Width:  width,
		Height: height,
		Pix:    make([]bool, width*height),
	}
}

// Row returns row r as a sub-slice of Pix. Callers must not modify it.
func (b Bitmap) Row(r int) []bool {
	return b.Pix[r*b.Width : (r+1)*b.Width]
}

// Set marks the pixel at column c, row r.
func (b Bitmap) Set(c, r int, exposed bool) {
	b.Pix[r*b.Width+c] = exposed
}
