package main

import (
	"os"
	"testing"

	"github.com/wagiedev/cqp-go/internal/testutil/fakecqp"
)

func TestMain(m *testing.M) {
	fakecqp.RunIfRequested()
	os.Exit(m.Run())
}
