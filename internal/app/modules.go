package app

import (
	"io"

	"github.com/vk/hookgrid/internal/registry"
	"github.com/vk/hookgrid/modules/env_vars"
	"github.com/vk/hookgrid/modules/http_request"
	"github.com/vk/hookgrid/modules/llm"
	"github.com/vk/hookgrid/modules/print"
	"github.com/vk/hookgrid/modules/s3"
	"github.com/vk/hookgrid/modules/socketio"
)

// coreModules is the definitive list of all modules that are compiled into
// the hookgrid binary. print writes to outW.
func coreModules(outW io.Writer) []registry.Module {
	return []registry.Module{
		&env_vars.Module{},
		&print.Module{Out: outW},
		&http_request.Module{},
		&s3.Module{},
		&socketio.Module{},
		&llm.Module{},
	}
}
