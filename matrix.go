package bloom

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Scene camera parameters.
const (
	FieldOfView    float32 = 45 // degrees
	ZNear          float32 = 0.1
	ZFar           float32 = 100
	CameraDistance float32 = 6
)

// Perspective returns the scene projection for a surface of the given size.
// A degenerate height is treated as a square surface.
func Perspective(width, height int) mgl32.Mat4 {
	aspect := float32(1)
	if width > 0 && height > 0 {
		aspect = float32(width) / float32(height)
	}
	return mgl32.Perspective(mgl32.DegToRad(FieldOfView), aspect, ZNear, ZFar)
}

// SceneModelView places the shape CameraDistance units in front of the
// camera and spins it around the y axis by one radian per second.
func SceneModelView(t time.Duration) mgl32.Mat4 {
	angle := float32(t.Seconds())
	return mgl32.Translate3D(0, 0, -CameraDistance).Mul4(mgl32.HomogRotate3DY(angle))
}

// ScreenProjection is the orthographic projection of full-screen passes.
func ScreenProjection() mgl32.Mat4 {
	return mgl32.Ortho(-1, 1, -1, 1, -1, 1)
}

// ScreenModelView is the identity transform of full-screen passes.
func ScreenModelView() mgl32.Mat4 {
	return mgl32.Ident4()
}
