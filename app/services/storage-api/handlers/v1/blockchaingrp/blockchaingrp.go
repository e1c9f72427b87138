// Package blockchaingrp maintains the group of handlers for reading the
// stored value and its update history.
package blockchaingrp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/simplestorage/business/core/value"
	"github.com/ardanlabs/simplestorage/business/sys/metrics"
	"github.com/ardanlabs/simplestorage/business/sys/rpcerr"
	"github.com/ardanlabs/simplestorage/business/sys/validate"
	"github.com/ardanlabs/simplestorage/business/web/errs"
	"github.com/ardanlabs/simplestorage/foundation/events"
	"github.com/ardanlabs/simplestorage/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Messages returned to the client for rpc failures.
const (
	msgTimeout     = "RPC timeout, please try again shortly"
	msgUnreachable = "unable to connect to the blockchain RPC"
	msgInternal    = "error reading blockchain data"
)

// writeWait bounds each write to a stream client.
const writeWait = 5 * time.Second

// Handlers manages the set of blockchain endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	Value *value.Core
	WS    websocket.Upgrader
	Evts  *events.Events
}

// QueryValue returns the value currently held by the contract.
func (h Handlers) QueryValue(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := h.Value.Latest(ctx)
	if err != nil {
		return rpcError(err)
	}

	return web.Respond(ctx, w, appValue{Value: v.String()}, http.StatusOK)
}

// QueryEvents returns the ValueUpdated events for the requested block range.
func (h Handlers) QueryEvents(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	q := eventsQuery{
		From: web.Query(r, "from"),
		To:   web.Query(r, "to"),
	}

	if err := validate.Check(q); err != nil {
		return err
	}

	br, err := q.blockRange()
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("%w: %s", value.ErrInvalidRange, err), http.StatusBadRequest)
	}

	updates, err := h.Value.QueryUpdates(ctx, br)
	if err != nil {
		if errors.Is(err, value.ErrInvalidRange) {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		return rpcError(err)
	}

	return web.Respond(ctx, w, toAppUpdates(updates), http.StatusOK)
}

// StreamEvents handles a web socket to push new ValueUpdated events to a client.
func (h Handlers) StreamEvents(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// The connection has been hijacked, record the status for the logs.
	web.SetStatusCode(ctx, http.StatusSwitchingProtocols)

	ch := h.Evts.Acquire(v.TraceID)
	defer func() {
		h.Evts.Release(v.TraceID)
		metrics.SetStreams(h.Evts.Count())
	}()
	metrics.SetStreams(h.Evts.Count())

	// Reading processes close and pong frames. A failed read means the
	// client is gone.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return nil

		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				return nil
			}

		case <-ticker.C:
			c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Publisher returns a function that sends an update to every connected
// stream client in the same shape the events endpoint uses.
func Publisher(log *zap.SugaredLogger, evts *events.Events) func(value.Update) {
	return func(upd value.Update) {
		data, err := json.Marshal(toAppUpdate(upd))
		if err != nil {
			log.Errorw("publish", "txhash", upd.TxHash, "ERROR", err)
			return
		}

		n := evts.Send(data)
		log.Infow("publish", "block", upd.BlockNumber, "value", upd.Value, "txhash", upd.TxHash, "clients", n)
	}
}

// =============================================================================

// rpcError translates an rpc failure into a trusted error. Timeouts and
// connection failures are reported as 503, anything else as 500.
func rpcError(err error) error {
	switch rpcerr.Classify(err) {
	case rpcerr.Timeout:
		return errs.Wrap(err, msgTimeout, http.StatusServiceUnavailable)

	case rpcerr.Unreachable:
		return errs.Wrap(err, msgUnreachable, http.StatusServiceUnavailable)
	}

	return errs.Wrap(err, msgInternal, http.StatusInternalServerError)
}
