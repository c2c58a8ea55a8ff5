package session

import "time"

// pendingEchoDelay is how long an evaluation may stay pending before the
// session prints a courtesy echo. The echo is purely cosmetic and never
// affects the settled value.
const pendingEchoDelay = 500 * time.Millisecond

// Future is an evaluation result that has not settled yet. It settles
// exactly once; Done is closed after the value and error are recorded.
type Future struct {
	desc  string
	done  chan struct{}
	value any
	err   error
}

func newFuture(desc string, run func() (any, error)) *Future {
	f := &Future{desc: desc, done: make(chan struct{})}
	go func() {
		f.value, f.err = run()
		close(f.done)
	}()
	return f
}

func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the computation settles and returns its outcome.
func (f *Future) Wait() (any, error) {
	<-f.done
	return f.value, f.err
}

func (f *Future) String() string { return "<pending> " + f.desc }
