package main

import (
	"context"
	"testing"

	"mapquester/experience"
	"mapquester/utils/errors"
)

func TestStartLoop_TeardownAfterSignal(t *testing.T) {
	sigCtx, signalled := context.WithCancel(context.Background())
	loop := experience.NewLoop(0)
	loopCtx, stop := startLoop(loop)

	signalled()
	<-sigCtx.Done()
	if loopCtx.Err() != nil {
		t.Fatal("expected the loop to keep running after the signal")
	}

	unmounted := false
	if err := loop.Do(context.Background(), func() { unmounted = true }); err != nil {
		t.Fatalf("expected teardown to run on the loop, got %v", err)
	}
	if !unmounted {
		t.Error("expected the teardown callback to run")
	}

	stop()
	if loopCtx.Err() == nil {
		t.Error("expected stop to cancel the loop context")
	}
	if err := loop.Do(context.Background(), func() {}); !errors.Is(err, experience.ErrLoopStopped) {
		t.Errorf("expected ErrLoopStopped after stop, got %v", err)
	}
}
