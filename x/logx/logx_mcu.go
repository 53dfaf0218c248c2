//go:build rp2040 || rp2350

package logx

type mcuLogger struct {
	pkg string
}

var debugPkgs = map[string]bool{}

func New(pkg string) Logger { return &mcuLogger{pkg: pkg} }

func SetDebug(pkg string, debug bool) error {
	debugPkgs[pkg] = debug
	return nil
}

func FinalizeLogger() {}

func (l *mcuLogger) Debugf(format string, args ...any) {
	if debugPkgs[l.pkg] {
		l.print("DEBUG", format, args)
	}
}
func (l *mcuLogger) Infof(format string, args ...any)  { l.print("INFO", format, args) }
func (l *mcuLogger) Errorf(format string, args ...any) { l.print("ERROR", format, args) }

func (l *mcuLogger) print(level, format string, args []any) {
	println("[" + l.pkg + "] " + level + " " + sprintf(format, args))
}
