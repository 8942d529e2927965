package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoundTasksCancel(t *testing.T) {
	tasks := newRoundTasks()

	done := make(chan struct{})
	tasks.Start(context.Background(), "round-1", func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})

	assert.Equal(t, 1, tasks.Len())

	tasks.Cancel("round-1")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("round did not stop after cancel")
	}

	// Cancelling an unknown round is a no-op.
	tasks.Cancel("round-9")
}

func TestRoundTasksShutdown(t *testing.T) {
	tasks := newRoundTasks()

	var stopped atomic.Int32
	for _, id := range []string{"a", "b", "c"} {
		tasks.Start(context.Background(), id, func(ctx context.Context) {
			<-ctx.Done()
			stopped.Add(1)
		})
	}

	tasks.Shutdown()
	assert.Equal(t, int32(3), stopped.Load())
	assert.Equal(t, 0, tasks.Len())
}

func TestRoundTasksDeregistersOnReturn(t *testing.T) {
	tasks := newRoundTasks()

	done := make(chan struct{})
	tasks.Start(context.Background(), "round-1", func(context.Context) {
		close(done)
	})

	<-done
	assert.Eventually(t, func() bool { return tasks.Len() == 0 }, time.Second, 10*time.Millisecond)
}
