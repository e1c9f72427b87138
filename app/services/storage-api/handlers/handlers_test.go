package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/simplestorage/app/services/storage-api/handlers"
	"github.com/ardanlabs/simplestorage/app/services/storage-api/handlers/v1/blockchaingrp"
	"github.com/ardanlabs/simplestorage/business/core/value"
	"github.com/ardanlabs/simplestorage/business/web/errs"
	"github.com/ardanlabs/simplestorage/foundation/contract"
	"github.com/ardanlabs/simplestorage/foundation/events"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const address = "0xabE74f63a111F240b55e5EF1Aa931443e53C973D"

// =============================================================================

// node mocks the json-rpc client used by the contract binding.
type node struct {
	value *big.Int
	head  uint64
	logs  []types.Log
	err   error
	query ethereum.FilterQuery
}

func (n *node) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if n.err != nil {
		return nil, n.err
	}
	return parsedABI.Methods["getValue"].Outputs.Pack(n.value)
}

func (n *node) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	n.query = q
	return n.logs, n.err
}

func (n *node) BlockNumber(ctx context.Context) (uint64, error) {
	return n.head, n.err
}

var parsedABI = func() abi.ABI {
	a, err := abi.JSON(strings.NewReader(contract.SimpleStorageABI))
	if err != nil {
		panic(err)
	}
	return a
}()

func updateLog(block uint64, v int64, tx string) types.Log {
	data, err := parsedABI.Events["ValueUpdated"].Inputs.Pack(big.NewInt(v))
	if err != nil {
		panic(err)
	}

	return types.Log{
		Address:     common.HexToAddress(address),
		Topics:      []common.Hash{contract.ValueUpdatedTopic()},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.HexToHash(tx),
	}
}

func newMux(t *testing.T, n *node, evts *events.Events) (http.Handler, *value.Core) {
	log := zap.NewNop().Sugar()

	ss, err := contract.New(common.HexToAddress(address), n)
	if err != nil {
		t.Fatalf("Should be able to bind the contract: %s", err)
	}

	core := value.NewCore(log, ss, value.Config{RPCTimeout: time.Second})

	mux := handlers.APIMux(handlers.APIMuxConfig{
		Shutdown:   make(chan os.Signal, 1),
		Log:        log,
		Value:      core,
		Evts:       evts,
		CORSOrigin: "*",
	})

	return mux, core
}

func get(mux http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, target, nil)
	mux.ServeHTTP(w, r)
	return w
}

// =============================================================================

func Test_Value(t *testing.T) {
	n := node{value: big.NewInt(42)}
	mux, _ := newMux(t, &n, nil)

	w := get(mux, "/blockchain/value")

	if w.Code != http.StatusOK {
		t.Logf("got: %d", w.Code)
		t.Logf("exp: %d", http.StatusOK)
		t.Fatalf("Should be able to read the value.")
	}

	var resp struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Should be able to decode the response: %s", err)
	}

	if resp.Value != "42" {
		t.Logf("got: %q", resp.Value)
		t.Logf("exp: %q", "42")
		t.Fatalf("Should get back the value stringified.")
	}
}

func Test_LargeValue(t *testing.T) {
	v, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)

	n := node{value: v}
	mux, _ := newMux(t, &n, nil)

	w := get(mux, "/blockchain/value")

	if !strings.Contains(w.Body.String(), `"`+v.String()+`"`) {
		t.Logf("got: %s", w.Body.String())
		t.Fatalf("Should not lose precision on a uint256 value.")
	}
}

func Test_Events(t *testing.T) {
	n := node{
		head: 10_000,
		logs: []types.Log{
			updateLog(9_001, 5, "0xaa"),
			updateLog(9_500, 7, "0xbb"),
		},
	}
	mux, _ := newMux(t, &n, nil)

	w := get(mux, "/blockchain/events")

	if w.Code != http.StatusOK {
		t.Logf("got: %d", w.Code)
		t.Logf("exp: %d", http.StatusOK)
		t.Fatalf("Should be able to read the events.")
	}

	var resp []map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Should be able to decode the response: %s", err)
	}

	exp := []map[string]string{
		{"blockNumber": "9001", "value": "5", "txHash": common.HexToHash("0xaa").Hex()},
		{"blockNumber": "9500", "value": "7", "txHash": common.HexToHash("0xbb").Hex()},
	}

	if len(resp) != len(exp) {
		t.Logf("got: %v", resp)
		t.Logf("exp: %v", exp)
		t.Fatalf("Should get back every event.")
	}

	for i := range exp {
		for k, v := range exp[i] {
			if resp[i][k] != v {
				t.Logf("got: %v", resp[i])
				t.Logf("exp: %v", exp[i])
				t.Fatalf("Should map the event to the documented shape.")
			}
		}
	}

	if n.query.FromBlock.Uint64() != 8_001 || n.query.ToBlock.Uint64() != 10_000 {
		t.Logf("got: %s - %s", n.query.FromBlock, n.query.ToBlock)
		t.Logf("exp: 8001 - 10000")
		t.Fatalf("Should query the default window ending at the head.")
	}
}

func Test_EventsEmpty(t *testing.T) {
	n := node{head: 10}
	mux, _ := newMux(t, &n, nil)

	w := get(mux, "/blockchain/events?from=0&to=latest")

	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Logf("got: %d %s", w.Code, w.Body.String())
		t.Logf("exp: %d []", http.StatusOK)
		t.Fatalf("Should get back an empty array.")
	}
}

func Test_Errors(t *testing.T) {
	type table struct {
		name   string
		target string
		err    error
		status int
		msg    string
	}

	tt := []table{
		{"value-timeout", "/blockchain/value", errors.New("request timeout"), http.StatusServiceUnavailable, "RPC timeout, please try again shortly"},
		{"value-deadline", "/blockchain/value", context.DeadlineExceeded, http.StatusServiceUnavailable, "RPC timeout, please try again shortly"},
		{"value-network", "/blockchain/value", errors.New("network unreachable"), http.StatusServiceUnavailable, "unable to connect to the blockchain RPC"},
		{"value-internal", "/blockchain/value", errors.New("execution reverted"), http.StatusInternalServerError, "error reading blockchain data"},
		{"events-timeout", "/blockchain/events", errors.New("Timeout exceeded"), http.StatusServiceUnavailable, "RPC timeout, please try again shortly"},
		{"events-fetch", "/blockchain/events?from=1&to=2", errors.New("fetch failed"), http.StatusServiceUnavailable, "unable to connect to the blockchain RPC"},
		{"events-internal", "/blockchain/events?from=1&to=2", errors.New("query returned more than 10000 results"), http.StatusInternalServerError, "error reading blockchain data"},
		{"range-too-wide", "/blockchain/events?from=0&to=2048", nil, http.StatusBadRequest, ""},
		{"range-reversed", "/blockchain/events?from=10&to=5", nil, http.StatusBadRequest, ""},
		{"range-not-number", "/blockchain/events?from=abc", nil, http.StatusBadRequest, "data validation error"},
		{"range-overflow", "/blockchain/events?from=99999999999999999999999", nil, http.StatusBadRequest, ""},
	}

	t.Log("Given the need to translate failures into http errors.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				n := node{value: big.NewInt(1), head: 100, err: tst.err}
				mux, _ := newMux(t, &n, nil)

				w := get(mux, tst.target)

				if w.Code != tst.status {
					t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, w.Code)
					t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, tst.status)
					t.Fatalf("\t%s\tTest %d:\tShould get back the right status code.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the right status code.", success, testID)

				var resp errs.Response
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to decode the error: %s", failed, testID, err)
				}

				if tst.msg != "" && resp.Error != tst.msg {
					t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, resp.Error)
					t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.msg)
					t.Fatalf("\t%s\tTest %d:\tShould get back the client message.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the client message.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Preflight(t *testing.T) {
	mux, _ := newMux(t, &node{}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodOptions, "/blockchain/value", nil)
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Logf("got: %d", w.Code)
		t.Logf("exp: %d", http.StatusNoContent)
		t.Fatalf("Should accept the preflight request.")
	}

	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("Should set the CORS headers.")
	}
}

func Test_Stream(t *testing.T) {
	evts := events.New()
	defer evts.Shutdown()

	mux, _ := newMux(t, &node{}, evts)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/blockchain/events/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Should be able to open the stream: %s", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for evts.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Should register the stream client.")
		}
		time.Sleep(10 * time.Millisecond)
	}

	publish := blockchaingrp.Publisher(zap.NewNop().Sugar(), evts)
	publish(value.Update{BlockNumber: 77, Value: big.NewInt(9), TxHash: "0xcc"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Should be able to read the pushed update: %s", err)
	}

	var upd map[string]string
	if err := json.Unmarshal(msg, &upd); err != nil {
		t.Fatalf("Should be able to decode the update: %s", err)
	}

	if upd["blockNumber"] != "77" || upd["value"] != "9" || upd["txHash"] != "0xcc" {
		t.Logf("got: %v", upd)
		t.Fatalf("Should push the update in the events shape.")
	}
}

func Test_StreamClientClose(t *testing.T) {
	evts := events.New()
	defer evts.Shutdown()

	mux, _ := newMux(t, &node{}, evts)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/blockchain/events/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Should be able to open the stream: %s", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for evts.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Should register the stream client.")
		}
		time.Sleep(10 * time.Millisecond)
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		t.Fatalf("Should be able to send the close frame: %s", err)
	}
	conn.Close()

	// Release must happen before the first ping is due.
	deadline = time.Now().Add(750 * time.Millisecond)
	for evts.Count() != 0 {
		if time.Now().After(deadline) {
			t.Logf("got: %d", evts.Count())
			t.Logf("exp: %d", 0)
			t.Fatalf("Should release the stream as soon as the client closes.")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func Test_Readiness(t *testing.T) {
	type table struct {
		name   string
		err    error
		status int
	}

	tt := []table{
		{"ready", nil, http.StatusOK},
		{"not-ready", errors.New("dial tcp: connection refused"), http.StatusInternalServerError},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			_, core := newMux(t, &node{head: 5, err: tst.err}, nil)
			mux := handlers.DebugMux("test", zap.NewNop().Sugar(), core)

			w := get(mux, "/debug/readiness")
			if w.Code != tst.status {
				t.Logf("Test %s:\tgot: %d", tst.name, w.Code)
				t.Logf("Test %s:\texp: %d", tst.name, tst.status)
				t.Fatalf("Test %s:\tShould report the rpc readiness.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}
