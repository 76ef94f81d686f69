package adapter

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	json "github.com/goccy/go-json"

	m "jolt.dev/pkg/jolt/internal/model"
)

// WorkerProcess is one live worker driven over newline-delimited JSON frames
// on its stdio. Send and Recv are not safe for concurrent use; the pool owns
// each process from exactly one goroutine.
type WorkerProcess interface {
	// Send writes one request frame to the worker's stdin.
	Send(request m.WorkerRequest) error

	// Recv blocks until the next response frame arrives on the worker's
	// stdout. A dead worker surfaces here as a read or decode error.
	Recv() (m.WorkerResponse, error)

	// Kill terminates the worker immediately.
	Kill() error

	// Shutdown closes the worker's stdin and waits for it to exit.
	Shutdown() error
}

// WorkerLauncher abstracts how worker processes come to life, so the pool can
// be driven by fakes in tests.
type WorkerLauncher interface {
	Launch(ctx context.Context) (WorkerProcess, error)
}

// LocalWorkerLauncher starts workers by re-executing the current binary with
// the hidden worker command, so a deployed runner needs no second executable.
type LocalWorkerLauncher struct {
	executable string
	args       []string
}

// NewLocalWorkerLauncher constructs a launcher for the current binary. The
// args are passed verbatim to every spawned worker and carry the execution
// settings the worker cannot derive itself (filter, suite, timeouts).
func NewLocalWorkerLauncher(args []string) (*LocalWorkerLauncher, error) {
	executable, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating runner executable: %w", err)
	}

	return &LocalWorkerLauncher{executable: executable, args: args}, nil
}

// Launch starts one worker process. Its stderr passes through to the runner's
// stderr so worker-side panics stay visible; stdout is reserved for frames.
func (l *LocalWorkerLauncher) Launch(ctx context.Context) (WorkerProcess, error) {
	cmd := exec.CommandContext(ctx, l.executable, l.args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}

	return &localWorkerProcess{
		cmd:     cmd,
		stdin:   stdin,
		encoder: json.NewEncoder(stdin),
		decoder: json.NewDecoder(stdout),
	}, nil
}

type localWorkerProcess struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	encoder *json.Encoder
	decoder *json.Decoder
}

func (p *localWorkerProcess) Send(request m.WorkerRequest) error {
	return p.encoder.Encode(request)
}

func (p *localWorkerProcess) Recv() (m.WorkerResponse, error) {
	var response m.WorkerResponse
	if err := p.decoder.Decode(&response); err != nil {
		return m.WorkerResponse{}, err
	}

	return response, nil
}

func (p *localWorkerProcess) Kill() error {
	return p.cmd.Process.Kill()
}

func (p *localWorkerProcess) Shutdown() error {
	if err := p.stdin.Close(); err != nil {
		return err
	}

	return p.cmd.Wait()
}

// WorkerStdio is the worker-side end of the protocol, decoding requests from
// stdin and encoding responses to stdout.
type WorkerStdio struct {
	encoder *json.Encoder
	decoder *json.Decoder
}

// NewWorkerStdio wraps the given streams, normally os.Stdin and os.Stdout.
func NewWorkerStdio(in io.Reader, out io.Writer) *WorkerStdio {
	return &WorkerStdio{
		encoder: json.NewEncoder(out),
		decoder: json.NewDecoder(in),
	}
}

// Recv blocks until the pool sends the next request. io.EOF means the pool
// closed the stream and the worker should exit cleanly.
func (s *WorkerStdio) Recv() (m.WorkerRequest, error) {
	var request m.WorkerRequest
	if err := s.decoder.Decode(&request); err != nil {
		return m.WorkerRequest{}, err
	}

	return request, nil
}

// Send writes one response frame.
func (s *WorkerStdio) Send(response m.WorkerResponse) error {
	return s.encoder.Encode(response)
}
