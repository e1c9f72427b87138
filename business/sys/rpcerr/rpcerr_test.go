package rpcerr_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/ardanlabs/simplestorage/business/sys/rpcerr"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o deadline reached" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func Test_Classify(t *testing.T) {
	type table struct {
		name string
		err  error
		exp  rpcerr.Class
	}

	tt := []table{
		{"nil", nil, rpcerr.None},
		{"deadline", fmt.Errorf("call getValue: %w", context.DeadlineExceeded), rpcerr.Timeout},
		{"net-timeout", fmt.Errorf("filter logs: %w", timeoutErr{}), rpcerr.Timeout},
		{"timeout-message", errors.New("The request took too long to respond. Details: request timeout"), rpcerr.Timeout},
		{"refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, rpcerr.Unreachable},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.avax-test.network"}, rpcerr.Unreachable},
		{"url", &url.Error{Op: "Post", URL: "https://api.avax-test.network", Err: errors.New("eof")}, rpcerr.Unreachable},
		{"network-message", errors.New("Network request failed"), rpcerr.Unreachable},
		{"fetch-message", errors.New("fetch error"), rpcerr.Unreachable},
		{"failed-message", errors.New("HTTP request FAILED"), rpcerr.Unreachable},
		{"revert", errors.New("execution reverted"), rpcerr.Internal},
		{"abi", errors.New("abi: cannot marshal in to go type"), rpcerr.Internal},
	}

	t.Log("Given the need to classify rpc failures.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				got := rpcerr.Classify(tst.err)
				if got != tst.exp {
					t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, got)
					t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.exp)
					t.Fatalf("\t%s\tTest %d:\tShould classify %q correctly.", failed, testID, tst.name)
				}
				t.Logf("\t%s\tTest %d:\tShould classify %q correctly.", success, testID, tst.name)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Transient(t *testing.T) {
	if !rpcerr.Timeout.Transient() || !rpcerr.Unreachable.Transient() {
		t.Fatalf("Should treat timeouts and unreachable nodes as transient.")
	}

	if rpcerr.Internal.Transient() || rpcerr.None.Transient() {
		t.Fatalf("Should not treat internal failures as transient.")
	}
}
