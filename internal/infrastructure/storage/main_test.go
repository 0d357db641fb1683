package storage

import (
	"os"
	"testing"

	"github.com/flowforge/orchestrator/testutil"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.RunWithEmbeddedDB(m))
}
