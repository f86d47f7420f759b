package main

import (
	"os"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate"

	"github.com/stealthreserve/swapd/chainadapter/monero"
	"github.com/stealthreserve/swapd/chainadapter/solana"
	"github.com/stealthreserve/swapd/store"
)

// logWriter implements io.Writer and writes to both standard output
// and the rotating log file.
type logWriter struct {
	rotator *logrotate.Rotator
}

func (w logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	return w.rotator.Write(p)
}

var (
	backendLog *btclog.Backend
	subsystems = make(map[string]btclog.Logger)
)

// initLogRotator initializes the rolling file logger under logFile and
// points every package's UseLogger hook at a distinct subsystem
// logger, following the teacher's NewBackend-per-subsystem layout.
func initLogRotator(logFile string) (*logrotate.Rotator, error) {
	r, err := logrotate.NewRotator(10*1024*1024, logFile)
	if err != nil {
		return nil, err
	}
	backendLog = btclog.NewBackend(logWriter{rotator: r})

	register := func(tag string, use func(btclog.Logger)) {
		l := backendLog.Logger(tag)
		subsystems[tag] = l
		use(l)
	}
	register("SOLA", solana.UseLogger)
	register("MONR", monero.UseLogger)
	register("STOR", store.UseLogger)
	subsystems["COOR"] = backendLog.Logger("COOR")
	subsystems["HTTP"] = backendLog.Logger("HTTP")
	subsystems["SWPD"] = backendLog.Logger("SWPD")

	return r, nil
}

func subsystemLogger(tag string) btclog.Logger {
	if l, ok := subsystems[tag]; ok {
		return l
	}
	return btclog.Disabled
}

// setLogLevel applies lvl to every registered subsystem logger.
func setLogLevel(lvl string) {
	level, ok := btclog.LevelFromString(lvl)
	if !ok {
		level = btclog.LevelInfo
	}
	for _, l := range subsystems {
		l.SetLevel(level)
	}
}
