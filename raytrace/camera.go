package raytrace

import "github.com/prtcl-go/prtcl/tensor"

// Camera is a pinhole camera over a fixed-size pixel sensor, the 3D
// counterpart to the 2D pan/zoom viewport camera (camera/camera.go)
// generalized for ray casting rather than screen/world coordinate
// conversion.
type Camera struct {
	Origin      tensor.Tensor[float64]
	Principal   tensor.Tensor[float64] // viewing direction
	Up          tensor.Tensor[float64]
	FocalLength float64

	Width, Height int
}

// NewCamera constructs a camera at origin looking along principal,
// with up as the approximate vertical direction.
func NewCamera(origin, principal, up tensor.Tensor[float64], focalLength float64, width, height int) *Camera {
	return &Camera{
		Origin:      origin,
		Principal:   principal,
		Up:          up,
		FocalLength: focalLength,
		Width:       width,
		Height:      height,
	}
}

// Ray is one sensor pixel's cast ray: an origin and a normalized
// direction.
type Ray struct {
	X, Y      int
	Origin    tensor.Tensor[float64]
	Direction tensor.Tensor[float64]
}

// Cast returns one Ray per sensor pixel.
func (c *Camera) Cast() []Ray {
	v := tensor.Normalized(c.Up, 1e-12)
	p := tensor.Normalized(c.Principal, 1e-12)
	h := tensor.Normalized(tensor.Cross(v, p), 1e-12)

	pixelSize := 1.0 / float64(c.Width)
	sensorOriginX := -float64(c.Width-1) / 2
	sensorOriginY := -float64(c.Height-1) / 2

	rays := make([]Ray, 0, c.Width*c.Height)
	for ix := 0; ix < c.Width; ix++ {
		for iy := 0; iy < c.Height; iy++ {
			px := (sensorOriginX + float64(ix)) * pixelSize
			py := (sensorOriginY + float64(iy)) * pixelSize

			point := tensor.Add(c.Origin,
				tensor.Add(tensor.Scale(h, px),
					tensor.Add(tensor.Scale(v, py), tensor.Scale(p, -c.FocalLength))))
			dir := tensor.Normalized(tensor.Sub(c.Origin, point), 1e-12)
			rays = append(rays, Ray{X: ix, Y: iy, Origin: c.Origin, Direction: dir})
		}
	}
	return rays
}
