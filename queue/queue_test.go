package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/dispatchops/provider"
)

func msg(to string) provider.Message {
	return provider.Message{To: to, Subject: "hello", Body: "body of " + to}
}

func TestQueue_FIFO(t *testing.T) {
	q := New()
	assert.Equal(t, 1, q.Push(msg("a@example.com")))
	assert.Equal(t, 2, q.Push(msg("b@example.com")))
	assert.Equal(t, 2, q.Len())

	got := q.PopAll()
	require.Len(t, got, 2)
	assert.Equal(t, "a@example.com", got[0].To)
	assert.Equal(t, "b@example.com", got[1].To)
	assert.Zero(t, q.Len())
	assert.Empty(t, q.PopAll())
}

func TestQueue_PushFront(t *testing.T) {
	q := New()
	q.Push(msg("c@example.com"))
	q.PushFront(msg("a@example.com"), msg("b@example.com"))
	q.PushFront()

	got := q.PopAll()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"},
		[]string{got[0].To, got[1].To, got[2].To})
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Push(msg("x@example.com"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, q.Len())
}

func TestResultLog_Limit(t *testing.T) {
	l := resultLog{limit: 2}
	l.append(Result{Email: "1"})
	l.append(Result{Email: "2"})
	l.append(Result{Email: "3"})

	got := l.snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].Email)
	assert.Equal(t, "3", got[1].Email)
}
