// Copyright (C) 2024 The Dagu Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package firing

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/juliocesarbiz/custom-airflow/internal/workflow"
)

func TestTick_FiresDueWorkflowAndAdvancesNextFire(t *testing.T) {
	var calls int32
	loop := New(func(_ context.Context, _ *workflow.Workflow) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	w := workflow.New("due", "*/1 * * * *")
	w.SetNextFire(time.Now().UTC().Add(-time.Minute))
	previous := w.NextFire()

	loop.Tick(context.Background(), []*workflow.Workflow{w})

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.True(t, w.NextFire().After(previous))
}

func TestTick_SkipsWorkflowNotYetDue(t *testing.T) {
	var calls int32
	loop := New(func(_ context.Context, _ *workflow.Workflow) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	w := workflow.New("future", "*/1 * * * *")
	w.SetNextFire(time.Now().UTC().Add(time.Hour))

	loop.Tick(context.Background(), []*workflow.Workflow{w})
	require.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestTick_NeverOverlapsSameWorkflow(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var concurrent int32

	loop := New(func(_ context.Context, _ *workflow.Workflow) error {
		n := atomic.AddInt32(&concurrent, 1)
		require.Equal(t, int32(1), n)
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		atomic.AddInt32(&concurrent, -1)
		return nil
	})

	w := workflow.New("serial", "*/1 * * * *")
	w.SetNextFire(time.Now().UTC().Add(-time.Minute))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loop.Tick(context.Background(), []*workflow.Workflow{w})
		}()
	}
	<-started
	close(release)
	wg.Wait()
}
