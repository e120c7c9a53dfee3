// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package services

import (
	"context"
	"errors"

	"github.com/thejerf/suture/v4"
)

// RunFunc is a blocking loop that returns when ctx is canceled.
type RunFunc func(ctx context.Context) error

// RunnerService adapts a Run(ctx) loop, such as snapshot.Refresher.Run,
// to suture.Service.
type RunnerService struct {
	name string
	run  RunFunc
}

// NewRunnerService names and wraps run.
func NewRunnerService(name string, run RunFunc) *RunnerService {
	return &RunnerService{name: name, run: run}
}

// Serve implements suture.Service. A loop that returns nil before ctx is
// done has nothing left to do and is not restarted.
func (s *RunnerService) Serve(ctx context.Context) error {
	err := s.run(ctx)
	if err == nil && ctx.Err() == nil {
		return suture.ErrDoNotRestart
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *RunnerService) String() string {
	return s.name
}
