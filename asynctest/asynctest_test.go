package asynctest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunWithTimeLimitReturnsBodyResult(t *testing.T) {
	err := RunWithTimeLimit(context.Background(), time.Second, func() error {
		return nil
	})
	if err != nil {
		t.Fatalf("got %v, want nil", err)
	}
}

func TestRunWithTimeLimitReturnsBodyError(t *testing.T) {
	boom := errors.New("boom")
	err := RunWithTimeLimit(context.Background(), time.Second, func() error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want %v", err, boom)
	}
}

func TestRunWithTimeLimitExceeded(t *testing.T) {
	err := RunWithTimeLimit(context.Background(), 20*time.Millisecond, func() error {
		time.Sleep(time.Second)
		return nil
	})
	if !errors.Is(err, ErrTimeLimitExceeded) {
		t.Fatalf("got %v, want ErrTimeLimitExceeded", err)
	}
}

func TestRunAsynchronouslyGetResult(t *testing.T) {
	h := RunAsynchronously(func() (any, error) {
		return 42, nil
	})
	v, err := h.GetResult(time.Second)
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if v.(int) != 42 {
		t.Fatalf("got %v, want 42", v)
	}
}

func TestRunAsynchronouslyGetResultTimesOut(t *testing.T) {
	h := RunAsynchronously(func() (any, error) {
		time.Sleep(time.Second)
		return nil, nil
	})
	_, err := h.GetResult(20 * time.Millisecond)
	if !errors.Is(err, ErrAsyncTimeout) {
		t.Fatalf("got %v, want ErrAsyncTimeout", err)
	}
}

func TestRunAsynchronouslyDone(t *testing.T) {
	h := RunAsynchronously(func() (any, error) { return nil, nil })
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("Done channel never closed")
	}
}

func TestDecorateErrorContract(t *testing.T) {
	original := errors.New("original failure")
	decorated := DecorateError(original)

	if !errors.Is(decorated, original) {
		t.Fatal("decorated error must unwrap to the original")
	}
	if !strings.Contains(decorated.Error(), stackSentinel) {
		t.Fatalf("decorated error %q missing sentinel %q", decorated.Error(), stackSentinel)
	}
	if !IsDecorated(decorated) {
		t.Fatal("IsDecorated must report true for a decorated error")
	}
	if IsDecorated(original) {
		t.Fatal("IsDecorated must report false for the bare original")
	}
}

func TestDecorateErrorNil(t *testing.T) {
	if DecorateError(nil) != nil {
		t.Fatal("decorating nil must return nil")
	}
}
