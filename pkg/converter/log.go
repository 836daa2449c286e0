package converter

import "go.uber.org/zap"

var convLog = zap.NewNop()

// SetLogger installs a logger for conversion debug output. The package is
// silent by default.
func SetLogger(l *zap.Logger) {
	convLog = l
}
