package deepgram

import (
	"errors"
	"fmt"
	"io"
	"time"
)

type audioSink interface {
	SendAudio(data []byte) error
}

type waitCloser interface {
	Wait() error
	Close() error
}

// pumpAudio copies microphone audio into the listen socket until the
// capture ends. A clean EOF is not an error.
func pumpAudio(audio io.Reader, sink audioSink, chunkSize int, done chan<- error) {
	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if sendErr := sink.SendAudio(buf[:n]); sendErr != nil {
				done <- fmt.Errorf("failed to stream audio: %w", sendErr)
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				done <- nil
				return
			}
			done <- fmt.Errorf("audio capture error: %w", err)
			return
		}
	}
}

func waitForStream(session waitCloser, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = session.Close()
		return <-done
	}
}
