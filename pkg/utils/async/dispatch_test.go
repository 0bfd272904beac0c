package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/claimdesk/pkg/utils/async"
)

func TestGroupWaitsForHandlers(t *testing.T) {
	var g async.Group
	var count atomic.Int32

	for i := 0; i < 5; i++ {
		g.Dispatch(context.Background(), func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			count.Add(1)
			return nil
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	gt.NoError(t, g.Wait(ctx)).Required()
	gt.N(t, count.Load()).Equal(int32(5))
}

func TestGroupSurvivesPanicAndError(t *testing.T) {
	var g async.Group
	g.Dispatch(context.Background(), func(ctx context.Context) error {
		panic("boom")
	})
	g.Dispatch(context.Background(), func(ctx context.Context) error {
		return errors.New("failed")
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	gt.NoError(t, g.Wait(ctx))
}

func TestGroupWaitTimeout(t *testing.T) {
	var g async.Group
	release := make(chan struct{})
	g.Dispatch(context.Background(), func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	gt.Error(t, g.Wait(ctx))
	close(release)
}
