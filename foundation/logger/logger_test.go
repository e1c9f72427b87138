package logger_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/simplestorage/foundation/logger"
)

func Test_ServiceField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")

	log, err := logger.New("STORAGE-TEST", path)
	if err != nil {
		t.Fatalf("Should be able to construct a logger: %s", err)
	}

	log.Infow("startup", "status", "testing")
	log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Should be able to read the log output: %s", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("Should be able to decode the log entry as JSON: %s", err)
	}

	if entry["service"] != "STORAGE-TEST" {
		t.Logf("got: %v", entry["service"])
		t.Logf("exp: %v", "STORAGE-TEST")
		t.Fatalf("Should carry the service name on every entry.")
	}

	if entry["status"] != "testing" {
		t.Logf("got: %v", entry["status"])
		t.Logf("exp: %v", "testing")
		t.Fatalf("Should carry the key/value pairs.")
	}
}
