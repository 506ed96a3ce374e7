package renderer

// ShmFormat is a wl_shm pixel format code. The two legacy formats use 0 and
// 1; every other code is the DRM fourcc of the layout.
type ShmFormat uint32

func fourcc(a, b, c, d byte) ShmFormat {
	return ShmFormat(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

var (
	ShmFormatARGB8888    = ShmFormat(0)
	ShmFormatXRGB8888    = ShmFormat(1)
	ShmFormatABGR8888    = fourcc('A', 'B', '2', '4')
	ShmFormatXBGR8888    = fourcc('X', 'B', '2', '4')
	ShmFormatRGBA8888    = fourcc('R', 'A', '2', '4')
	ShmFormatRGBX8888    = fourcc('R', 'X', '2', '4')
	ShmFormatBGRA8888    = fourcc('B', 'A', '2', '4')
	ShmFormatBGRX8888    = fourcc('B', 'X', '2', '4')
	ShmFormatRGB888      = fourcc('R', 'G', '2', '4')
	ShmFormatBGR888      = fourcc('B', 'G', '2', '4')
	ShmFormatRGB565      = fourcc('R', 'G', '1', '6')
	ShmFormatBGR565      = fourcc('B', 'G', '1', '6')
	ShmFormatARGB4444    = fourcc('A', 'R', '1', '2')
	ShmFormatXRGB4444    = fourcc('X', 'R', '1', '2')
	ShmFormatRGBA4444    = fourcc('R', 'A', '1', '2')
	ShmFormatRGBX4444    = fourcc('R', 'X', '1', '2')
	ShmFormatBGRA4444    = fourcc('B', 'A', '1', '2')
	ShmFormatBGRX4444    = fourcc('B', 'X', '1', '2')
	ShmFormatARGB1555    = fourcc('A', 'R', '1', '5')
	ShmFormatXRGB1555    = fourcc('X', 'R', '1', '5')
	ShmFormatRGBA5551    = fourcc('R', 'A', '1', '5')
	ShmFormatRGBX5551    = fourcc('R', 'X', '1', '5')
	ShmFormatBGRA5551    = fourcc('B', 'A', '1', '5')
	ShmFormatBGRX5551    = fourcc('B', 'X', '1', '5')
	ShmFormatARGB2101010 = fourcc('A', 'R', '3', '0')
	ShmFormatXRGB2101010 = fourcc('X', 'R', '3', '0')
	ShmFormatABGR2101010 = fourcc('A', 'B', '3', '0')
	ShmFormatXBGR2101010 = fourcc('X', 'B', '3', '0')
)

func (f ShmFormat) String() string {
	switch f {
	case ShmFormatARGB8888:
		return "ARGB8888"
	case ShmFormatXRGB8888:
		return "XRGB8888"
	}
	return string([]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)})
}

// ShmBuffer is a client buffer in shared memory. Rows are Stride bytes apart.
type ShmBuffer struct {
	Data   []byte
	Width  uint32
	Height uint32
	Stride uint32
	Format ShmFormat
}

// HasAlpha reports whether the layout carries an alpha channel.
func (f ShmFormat) HasAlpha() bool {
	switch f {
	case ShmFormatARGB8888:
		return true
	case ShmFormatXRGB8888:
		return false
	}
	return byte(f) == 'A' || byte(f>>8) == 'A'
}
