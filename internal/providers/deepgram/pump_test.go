package deepgram

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPumpAudioSendsUntilEOF(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	done := make(chan error, 1)
	pumpAudio(strings.NewReader("abcdef"), sink, 256, done)

	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sink.String(); got != "abcdef" {
		t.Fatalf("unexpected audio: %q", got)
	}
}

func TestPumpAudioReportsSendError(t *testing.T) {
	t.Parallel()

	done := make(chan error, 1)
	pumpAudio(strings.NewReader("abc"), &recordingSink{err: errors.New("send failed")}, 256, done)

	err := <-done
	if err == nil || !strings.Contains(err.Error(), "failed to stream audio") {
		t.Fatalf("expected send error, got %v", err)
	}
}

func TestPumpAudioReportsReadError(t *testing.T) {
	t.Parallel()

	done := make(chan error, 1)
	pumpAudio(errReader{err: errors.New("read failed")}, &recordingSink{}, 256, done)

	err := <-done
	if err == nil || !strings.Contains(err.Error(), "audio capture error") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestWaitForStreamTimeoutClosesSession(t *testing.T) {
	t.Parallel()

	stream := &blockingWaitStream{done: make(chan struct{}), waitErr: errors.New("closed")}
	err := waitForStream(stream, 10*time.Millisecond)
	if err == nil || err.Error() != "closed" {
		t.Fatalf("expected closed error, got %v", err)
	}
	if stream.closeCalls == 0 {
		t.Fatalf("expected close to be called on timeout")
	}
}

type recordingSink struct {
	strings.Builder
	err error
}

func (s *recordingSink) SendAudio(data []byte) error {
	if s.err != nil {
		return s.err
	}
	s.Write(data)
	return nil
}

type errReader struct {
	err error
}

func (r errReader) Read(_ []byte) (int, error) { return 0, r.err }

type blockingWaitStream struct {
	done       chan struct{}
	waitErr    error
	closeCalls int
}

func (s *blockingWaitStream) Wait() error {
	<-s.done
	return s.waitErr
}

func (s *blockingWaitStream) Close() error {
	s.closeCalls++
	close(s.done)
	return nil
}
