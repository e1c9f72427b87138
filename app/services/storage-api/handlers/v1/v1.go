// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/simplestorage/app/services/storage-api/handlers/v1/blockchaingrp"
	"github.com/ardanlabs/simplestorage/business/core/value"
	"github.com/ardanlabs/simplestorage/foundation/events"
	"github.com/ardanlabs/simplestorage/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	Value *value.Core
	Evts  *events.Events
}

// Routes binds all the version 1 routes.
func Routes(app *web.App, cfg Config) {
	const group = "blockchain"

	bgh := blockchaingrp.Handlers{
		Log:   cfg.Log,
		Value: cfg.Value,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, group, "/value", bgh.QueryValue)
	app.Handle(http.MethodGet, group, "/events", bgh.QueryEvents)

	if cfg.Evts != nil {
		app.Handle(http.MethodGet, group, "/events/stream", bgh.StreamEvents)
	}
}
