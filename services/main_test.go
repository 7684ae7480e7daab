package services

import (
	"testing"

	"go.uber.org/goleak"
	"go.uber.org/zap"

	"mondaydownloader/utils"
)

func TestMain(m *testing.M) {
	utils.SetLogger(zap.NewNop())
	goleak.VerifyTestMain(m)
}
