// Package autoload initializes the global logger from the LOG_* environment
// on import. Import for side effect only:
//
//	import _ "github.com/fasfous92/public-transport-RAG/pkg/logger/autoload"
package autoload

import (
	configx "github.com/fasfous92/public-transport-RAG/pkg/config"
	logx "github.com/fasfous92/public-transport-RAG/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
