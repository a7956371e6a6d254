package dictation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/starford/shunya/internal/apperr"
)

// Command runs an external speech-to-text program and treats every
// non-empty line it prints on stdout as a transcript fragment.
type Command struct {
	Name string
	Args []string
}

// Available reports whether the program can be found on PATH.
func (c *Command) Available() bool {
	_, err := exec.LookPath(c.Name)
	return err == nil
}

// Start launches the program. The session ends when Stop is called, when ctx
// is cancelled, or when the program exits; an exit that was not requested
// is reported through h.Failure.
func (c *Command) Start(ctx context.Context, h Handler) (Session, error) {
	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, c.Name, c.Args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", apperr.ErrDictationFailed, err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", apperr.ErrDictationFailed, err)
	}

	s := &commandSession{cancel: cancel, stdout: stdout, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		defer cancel()

		sc := bufio.NewScanner(stdout)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" && !s.isStopped() {
				h.Transcript(line)
			}
		}
		err := cmd.Wait()
		if s.isStopped() {
			return
		}
		if err == nil {
			err = errors.New("recogniser exited")
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		h.Failure(fmt.Errorf("%w: %v", apperr.ErrDictationFailed, err))
	}()
	return s, nil
}

type commandSession struct {
	cancel context.CancelFunc
	stdout io.Closer
	done   chan struct{}

	mu      sync.Mutex
	stopped bool
}

func (s *commandSession) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *commandSession) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	// Children of the recogniser may still hold the pipe open.
	_ = s.stdout.Close()
	<-s.done
	return nil
}
