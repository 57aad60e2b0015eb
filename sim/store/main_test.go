package store

import (
	"io"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestMain(m *testing.M) {
	if os.Getenv("SCA_DEBUG_TESTS") == "" {
		logrus.SetOutput(io.Discard)
	}
	os.Exit(m.Run())
}
