package logger

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"

	"kvaccel/utils"
)

// New returns a logger writing to w when path is empty, otherwise appending
// to the file at path. The returned close func releases the file.
func New(path string, level utils.LogLevel, w io.Writer) (*utils.ZapLogger, func() error, error) {
	if len(path) == 0 {
		return utils.NewZapLogger(zapcore.AddSync(w), level, false), func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o666)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open log file %s", path)
	}
	l := utils.NewZapLogger(zapcore.AddSync(f), level, false)
	l.Infow("Initializing log", "path", path)
	return l, f.Close, nil
}
