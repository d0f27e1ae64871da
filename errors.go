package gpgpu

import "errors"

// Dispatch errors.
var (
	// ErrNilEngine is returned by Execute when no engine is given.
	ErrNilEngine = errors.New("gpgpu: nil compute engine")

	// ErrNilCommand is returned by engines asked to execute a nil command.
	ErrNilCommand = errors.New("gpgpu: nil compute command")

	// ErrIncompleteCommand is returned by engines when a command has
	// neither a shader program nor a fragment shader source.
	ErrIncompleteCommand = errors.New("gpgpu: command has neither shader program nor fragment shader source")

	// ErrWrongPass is returned by engines asked to execute a command that
	// does not belong to the compute pass.
	ErrWrongPass = errors.New("gpgpu: command is not in the compute pass")
)
