package main

import (
	"testing"

	"github.com/mwanzo/sacco/internal/app"
	_ "github.com/mwanzo/sacco/testing"
)

func TestWorkerSkipsStartupInTestMode(t *testing.T) {
	if !app.InTestMode() {
		t.Fatal("expected test mode to be enabled")
	}
	main()
}
