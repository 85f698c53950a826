// Package window hosts the pipeline in a GLFW window with an OpenGL 4.1
// core context.
//
// GLFW and GL calls must stay on the main OS thread. Programs that open a
// window lock it from an init function:
//
//	func init() { runtime.LockOSThread() }
//
// The package needs cgo for GLFW and compiles empty without it.
package window
