package iqueue

import (
	"container/list"
)

// Queue is an unbounded FIFO that bridges a producer channel and a
// consumer channel. Loop must be running for Send/Receive to make progress.
type Queue struct {
	buf  *list.List
	send chan interface{}
	recv chan interface{}
}

func New() *Queue {
	return &Queue{
		buf:  list.New(),
		send: make(chan interface{}, 1),
		recv: make(chan interface{}, 1),
	}
}

func (q *Queue) Send(v interface{}) {
	q.send <- v
}

func (q *Queue) Receive() <-chan interface{} {
	return q.recv
}

func (q *Queue) Len() int {
	return q.buf.Len()
}

func (q *Queue) List() *list.List {
	return q.buf
}

func (q *Queue) Close() {
	close(q.send)
}

func (q *Queue) Loop() {
	for {
		front := q.buf.Front()
		if front != nil {
			select {
			case q.recv <- front.Value:
				q.buf.Remove(front)
			case value, ok := <-q.send:
				if ok {
					q.buf.PushBack(value)
				} else {
					q.send = nil
				}
			}
			continue
		}

		if q.send == nil {
			close(q.recv)
			return
		}
		value, ok := <-q.send
		if !ok {
			close(q.recv)
			return
		}
		q.buf.PushBack(value)
	}
}
