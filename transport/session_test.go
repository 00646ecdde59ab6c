package transport_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hemtjan.st/tradfrigw/transport"
	"hemtjan.st/tradfrigw/transport/transporttest"
)

func openSession(t *testing.T, gw *transporttest.Gateway) *transport.Session {
	t.Helper()
	s, err := transport.Open(context.Background(), "gateway", "user1", []byte("secret"), transport.Config{Dialer: gw})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionRequest(t *testing.T) {
	gw := transporttest.NewGateway(func(req *transport.Request) (codes.Code, []byte) {
		if req.Path == "15001" {
			return codes.Content, []byte(`[65537,65568]`)
		}
		return codes.NotFound, nil
	})
	s := openSession(t, gw)

	payload, err := s.Get(context.Background(), "15001")
	require.NoError(t, err)
	assert.Equal(t, `[65537,65568]`, string(payload))

	reqs := gw.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, transport.MethodGet, reqs[0].Method)
	assert.Equal(t, "15001", reqs[0].Path)
}

func TestSessionMessageIDsIncrease(t *testing.T) {
	gw := transporttest.NewGateway(func(req *transport.Request) (codes.Code, []byte) {
		return codes.Changed, nil
	})
	s := openSession(t, gw)

	require.NoError(t, s.Put(context.Background(), "15001/1", []byte(`{}`)))
	require.NoError(t, s.Put(context.Background(), "15001/1", []byte(`{}`)))

	reqs := gw.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, reqs[0].MessageID+1, reqs[1].MessageID)
	assert.NotEqual(t, reqs[0].Token, reqs[1].Token)
}

func TestSessionStatusError(t *testing.T) {
	gw := transporttest.NewGateway(func(req *transport.Request) (codes.Code, []byte) {
		return codes.NotFound, nil
	})
	s := openSession(t, gw)

	_, err := s.Get(context.Background(), "15001/1")
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrUnexpectedStatus)
	assert.NotErrorIs(t, err, transport.ErrTransport)

	var se *transport.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, codes.NotFound, se.Code)
}

func TestSessionSeparateResponse(t *testing.T) {
	gw := transporttest.NewGateway(func(req *transport.Request) (codes.Code, []byte) {
		return codes.Content, []byte(`{"9001":"x"}`)
	})
	gw.Separate = true
	s := openSession(t, gw)

	payload, err := s.Get(context.Background(), "15004/1")
	require.NoError(t, err)
	assert.Equal(t, `{"9001":"x"}`, string(payload))
	assert.Equal(t, 1, gw.Acks())
}

func TestSessionTimeout(t *testing.T) {
	gw := transporttest.NewGateway(func(req *transport.Request) (codes.Code, []byte) {
		return codes.Empty, nil
	})
	s := openSession(t, gw)
	s.SetTimeout(50 * time.Millisecond)

	start := time.Now()
	_, err := s.Get(context.Background(), "15001")
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrTransport)
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSessionContextCancel(t *testing.T) {
	gw := transporttest.NewGateway(func(req *transport.Request) (codes.Code, []byte) {
		return codes.Empty, nil
	})
	s := openSession(t, gw)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := s.Get(ctx, "15001")
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessionClosed(t *testing.T) {
	gw := transporttest.NewGateway(func(req *transport.Request) (codes.Code, []byte) {
		return codes.Content, nil
	})
	s, err := transport.Open(context.Background(), "gateway", "user1", []byte("secret"), transport.Config{Dialer: gw})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Get(context.Background(), "15001")
	assert.ErrorIs(t, err, transport.ErrClosed)
	assert.ErrorIs(t, s.Close(), transport.ErrClosed)
}

func TestSessionSerializesRequests(t *testing.T) {
	var inflight, maxInflight int32
	gw := transporttest.NewGateway(func(req *transport.Request) (codes.Code, []byte) {
		n := atomic.AddInt32(&inflight, 1)
		defer atomic.AddInt32(&inflight, -1)
		for {
			m := atomic.LoadInt32(&maxInflight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInflight, m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		return codes.Content, []byte(req.Path)
	})
	s := openSession(t, gw)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, err := s.Get(context.Background(), "15001")
			assert.NoError(t, err)
			assert.Equal(t, "15001", string(payload))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInflight))
	assert.Len(t, gw.Requests(), 10)
}

func TestSessionObserve(t *testing.T) {
	gw := transporttest.NewGateway(func(req *transport.Request) (codes.Code, []byte) {
		return codes.Content, []byte(`{"5850":0}`)
	})
	s := openSession(t, gw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- s.Observe(ctx, "15001/65537", func(resp *transport.Response) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, string(resp.Payload))
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, gw.Observers("15001/65537"))
	require.NoError(t, gw.Notify("15001/65537", []byte(`{"5850":1}`)))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("observe did not stop after cancel")
	}

	mu.Lock()
	assert.Equal(t, []string{`{"5850":0}`, `{"5850":1}`}, got)
	mu.Unlock()
	assert.Equal(t, 1, gw.Acks())
	assert.True(t, gw.Requests()[0].Observe)
}

func TestSessionObserveCallbackError(t *testing.T) {
	gw := transporttest.NewGateway(func(req *transport.Request) (codes.Code, []byte) {
		return codes.Content, []byte(`{}`)
	})
	s := openSession(t, gw)

	stop := errors.New("stop")
	err := s.Observe(context.Background(), "15001/1", func(*transport.Response) error {
		return stop
	})
	assert.ErrorIs(t, err, stop)
}
