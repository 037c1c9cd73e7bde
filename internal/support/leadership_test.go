package support

import (
	"context"
	"testing"
)

func TestRunWithLeaderWithoutRedisRunsDirectly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ran := false
	err := RunWithLeader(ctx, nil, "clansite:test", 0, func(runCtx context.Context) {
		ran = true
		cancel()
		<-runCtx.Done()
	})

	if !ran {
		t.Fatal("run was not invoked")
	}
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRunWithLeaderRejectsNilRun(t *testing.T) {
	if err := RunWithLeader(context.Background(), nil, "clansite:test", 0, nil); err == nil {
		t.Fatal("expected error for nil run function")
	}
}
