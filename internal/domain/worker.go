package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"jolt.dev/pkg/jolt/internal/adapter"
	m "jolt.dev/pkg/jolt/internal/model"
)

// ServeWorker runs the worker side of the pool protocol: announce readiness,
// then execute batch requests until the pool sends a shutdown frame or closes
// the stream. It returns an error only when the protocol stream itself breaks;
// test faults are data inside the result frames.
func ServeWorker(ctx context.Context, stdio *adapter.WorkerStdio, executor *Executor) error {
	if err := stdio.Send(m.WorkerResponse{Kind: m.FrameReady}); err != nil {
		return fmt.Errorf("announcing readiness: %w", err)
	}

	for {
		request, err := stdio.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("reading request frame: %w", err)
		}

		switch request.Kind {
		case m.FrameShutdown:
			slog.Debug("worker shutting down on request")
			return nil
		case m.FrameBatch:
			if request.Batch == nil {
				slog.Warn("batch frame without a batch")
				continue
			}

			if err := serveBatch(ctx, stdio, executor, *request.Batch); err != nil {
				return err
			}
		default:
			slog.Warn("unknown request frame", "kind", request.Kind)
		}
	}
}

func serveBatch(ctx context.Context, stdio *adapter.WorkerStdio, executor *Executor, batch m.Batch) error {
	var sendErr error

	executor.ExecuteBatch(ctx, batch, func(result m.FileResult) {
		if sendErr != nil {
			return
		}

		sendErr = stdio.Send(m.WorkerResponse{Kind: m.FrameFile, Index: batch.Index, Result: &result})
	})

	if sendErr != nil {
		return fmt.Errorf("streaming file result: %w", sendErr)
	}

	return stdio.Send(m.WorkerResponse{Kind: m.FrameDone, Index: batch.Index})
}
