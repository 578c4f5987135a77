package storage

import (
	"fmt"
	"strings"

	"github.com/Klingon-tech/noobchain/internal/log"
)

// badgerLogger routes badger's internal messages to the storage logger.
// Badger is chatty at info level, so info is demoted to debug.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	log.Storage.Error().Msg(trim(format, args))
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	log.Storage.Warn().Msg(trim(format, args))
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	log.Storage.Debug().Msg(trim(format, args))
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	log.Storage.Trace().Msg(trim(format, args))
}

func trim(format string, args []interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
