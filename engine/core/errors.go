package core

import (
	"errors"
)

var (
	ErrFileNotFound          = errors.New("file not found")
	ErrUnsupportedFormat     = errors.New("unsupported file format")
	ErrMalformedLine         = errors.New("malformed line")
	ErrInvalidGeometry       = errors.New("invalid geometry")
	ErrDuplicateName         = errors.New("duplicate name")
	ErrParentNotFound        = errors.New("parent not found")
	ErrShaderCompile         = errors.New("shader compilation failed")
	ErrProgramLink           = errors.New("program link failed")
	ErrShaderNotFound        = errors.New("shader source not found")
	ErrFramebufferIncomplete = errors.New("framebuffer incomplete")
	ErrMaterialNotFound      = errors.New("material not found")
	ErrInvalidConfig         = errors.New("invalid configuration")
	ErrNoWorkers             = errors.New("attempting to create worker pool with less than 1 worker")
	ErrNegativeChannelSize   = errors.New("attempting to create worker pool with a negative channel size")
	ErrQueueFull             = errors.New("queue is full")
	ErrMalformedMessage      = errors.New("malformed message")
	ErrUnknown               = errors.New("unknown")
)
