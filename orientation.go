package uhdrgen

// Orientation is an EXIF orientation value.
type Orientation int

// EXIF orientations.
const (
	OrientationUp            Orientation = 1
	OrientationUpMirrored    Orientation = 2
	OrientationDown          Orientation = 3
	OrientationDownMirrored  Orientation = 4
	OrientationLeftMirrored  Orientation = 5
	OrientationRight         Orientation = 6
	OrientationRightMirrored Orientation = 7
	OrientationLeft          Orientation = 8
)

// swapsAxes reports whether displaying with o exchanges width and height.
func (o Orientation) swapsAxes() bool {
	return o >= OrientationLeftMirrored && o <= OrientationLeft
}

// Oriented returns the image as it should be displayed for EXIF orientation o.
// Unknown values and OrientationUp return the image unchanged.
func (i *Image) Oriented(o Orientation) *Image {
	if o <= OrientationUp || o > OrientationLeft || i.empty() {
		return i
	}
	w, h := i.width, i.height
	if o.swapsAxes() {
		w, h = h, w
	}
	return NewImage(w, h, i.colorSpace, orientedSource{src: i.src, o: o, w: i.width, h: i.height})
}

// orientedSource maps display coordinates back to stored coordinates;
// w and h are stored dimensions.
type orientedSource struct {
	src  Source
	o    Orientation
	w, h int
}

func (s orientedSource) Sample(x, y int) Color {
	var sx, sy int
	switch s.o {
	case OrientationUpMirrored:
		sx, sy = s.w-1-x, y
	case OrientationDown:
		sx, sy = s.w-1-x, s.h-1-y
	case OrientationDownMirrored:
		sx, sy = x, s.h-1-y
	case OrientationLeftMirrored:
		sx, sy = y, x
	case OrientationRight:
		sx, sy = y, s.h-1-x
	case OrientationRightMirrored:
		sx, sy = s.w-1-y, s.h-1-x
	case OrientationLeft:
		sx, sy = s.w-1-y, x
	default:
		sx, sy = x, y
	}
	return s.src.Sample(sx, sy)
}

func (s orientedSource) check() error {
	if c, ok := s.src.(sourceChecker); ok {
		return c.check()
	}
	return nil
}
