// Copyright 2021 Optakt Labs OÜ
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package pthm

import (
	"github.com/gammazero/deque"
)

// handleQueue is a FIFO of leaf handles awaiting a pre-split, visited breadth
// first so ensureDepth grows every branch of the trie roughly evenly instead
// of running one branch all the way down before touching its sibling.
type handleQueue struct {
	handles *deque.Deque
}

func newHandleQueue() *handleQueue {
	return &handleQueue{
		handles: deque.New(16),
	}
}

// push enqueues a handle at the back of the queue.
func (q *handleQueue) push(h Handle) {
	q.handles.PushBack(h)
}

// pop dequeues the handle that has been waiting longest.
func (q *handleQueue) pop() Handle {
	return q.handles.PopFront().(Handle)
}

func (q *handleQueue) empty() bool {
	return q.handles.Len() == 0
}
