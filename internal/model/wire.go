package model

// Frame kinds of the worker protocol. The pool writes one request per line on
// a worker's stdin and reads one response per line from its stdout; anything
// else on stdout breaks the stream and is treated as a crash.
const (
	// FrameBatch carries one hydrated batch to a worker.
	FrameBatch = "batch"
	// FrameShutdown asks a worker to exit after its current batch.
	FrameShutdown = "shutdown"

	// FrameReady is the first response a healthy worker emits.
	FrameReady = "ready"
	// FrameFile carries the result of one completed file.
	FrameFile = "file"
	// FrameDone marks a batch as fully executed.
	FrameDone = "done"
)

// WorkerRequest is a pool-to-worker frame.
type WorkerRequest struct {
	Kind  string `json:"kind" yaml:"kind"`
	Batch *Batch `json:"batch,omitempty" yaml:"batch,omitempty"`
}

// WorkerResponse is a worker-to-pool frame. Index echoes the batch index for
// done frames; Result is set on file frames only.
type WorkerResponse struct {
	Kind   string      `json:"kind" yaml:"kind"`
	Index  int         `json:"index" yaml:"index"`
	Result *FileResult `json:"result,omitempty" yaml:"result,omitempty"`
}
