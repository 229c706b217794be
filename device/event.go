// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

// Event is the completion handle of a kernel submitted to a Queue.
// A nil *Event is treated as already completed.
type Event struct {
	done chan struct{}
	err  error
}

func newEvent() *Event {
	return &Event{done: make(chan struct{})}
}

// Completed returns an event that has already finished successfully.
func Completed() *Event {
	e := newEvent()
	e.complete(nil)
	return e
}

// Failed returns an event that has already finished with err.
func Failed(err error) *Event {
	e := newEvent()
	e.complete(err)
	return e
}

func (e *Event) complete(err error) {
	e.err = err
	close(e.done)
}

// Wait blocks until the kernel finished and returns its error.
// Memory written by the kernel is visible to the caller once Wait returns.
func (e *Event) Wait() error {
	if e == nil {
		return nil
	}
	<-e.done
	return e.err
}

// Done returns a channel closed on completion.
func (e *Event) Done() <-chan struct{} {
	if e == nil {
		return closed
	}
	return e.done
}

var closed = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Events is a dependency list.
type Events []*Event

// Wait blocks until every event completed and returns the first error in list order.
func (es Events) Wait() (err error) {
	for _, e := range es {
		if werr := e.Wait(); werr != nil && err == nil {
			err = werr
		}
	}
	return
}

// WaitAll is a shorthand for Events(events).Wait().
func WaitAll(events ...*Event) error {
	return Events(events).Wait()
}
