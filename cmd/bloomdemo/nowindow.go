//go:build !cgo

package main

import (
	"context"
	"errors"

	"github.com/gogpu/bloom/internal/config"
	"github.com/gogpu/bloom/pipeline"

	_ "github.com/gogpu/bloom/backend/native"
)

var errNoWindow = errors.New("-window needs a cgo build with the opengl backend")

func runWindow(context.Context, config.Config, pipeline.Config, options) error {
	return errNoWindow
}
