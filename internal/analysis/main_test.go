package analysis

import (
	"os"
	"testing"

	"github.com/Wakhungu1234/Wakhungu28Ai/internal/logger"
)

func TestMain(m *testing.M) {
	if err := logger.InitWithConfig(logger.LogConfig{Level: "ERROR", Format: "text"}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}
