package audio

import "fmt"

// Operation names the FFmpeg step that failed.
type Operation string

const (
	OpConcatenate Operation = "concatenate"
	OpProbe       Operation = "probe"
	OpRepair      Operation = "repair"
)

// AudioError carries the tool output of a failed FFmpeg or FFprobe run.
type AudioError struct {
	Op         Operation
	FilePath   string
	Stderr     string
	Underlying error
}

func (e *AudioError) Error() string {
	msg := fmt.Sprintf("audio %s failed for %s", e.Op, e.FilePath)
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	if e.Stderr != "" {
		msg += " (stderr: " + e.Stderr + ")"
	}
	return msg
}

func (e *AudioError) Unwrap() error { return e.Underlying }

func newAudioError(op Operation, path, stderr string, err error) *AudioError {
	return &AudioError{Op: op, FilePath: path, Stderr: stderr, Underlying: err}
}

// NewConcatError reports a failed join and tag pass on outputPath.
func NewConcatError(outputPath, stderr string, err error) *AudioError {
	return newAudioError(OpConcatenate, outputPath, stderr, err)
}

// NewProbeError reports a failed media inspection of filePath.
func NewProbeError(filePath, stderr string, err error) *AudioError {
	return newAudioError(OpProbe, filePath, stderr, err)
}

// NewRepairError reports a failed re-encode of inputPath.
func NewRepairError(inputPath, stderr string, err error) *AudioError {
	return newAudioError(OpRepair, inputPath, stderr, err)
}
