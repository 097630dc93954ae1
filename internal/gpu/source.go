package gpu

import (
	"log/slog"
	"os"
)

// VersionHeader is prepended to every stage source before compilation, so
// shader files carry no #version line of their own.
const VersionHeader = "#version 430 core\n"

// StageSource is the text of one shader stage and the file it came from.
type StageSource struct {
	Stage  Stage
	File   string
	Source string
}

// LoadSource reads the shader file at path for the given stage.
func LoadSource(stage Stage, path string) (StageSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("couldn't read shader file", "path", path, "stage", stage, "err", err)
		return StageSource{}, &SourceNotFoundError{Path: path, Err: err}
	}
	return StageSource{Stage: stage, File: path, Source: string(data)}, nil
}
