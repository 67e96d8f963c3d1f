package lsprpc

import "github.com/golangls/lsprpc/internal/lsplog"

var defaultLog = lsplog.New(lsplog.LevelInfo)

// defaultLogger is the Options.Logger used when the caller supplies none.
var defaultLogger = defaultLog.Func()
