package logger

import (
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
)

// bufferPool defines a concurrent safe free list of byte slices used to
// provide temporary buffers for formatting log messages prior to outputting
// them.
var bufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, normalLogSize)
		return &b // pointer to slice to avoid boxing alloc
	},
}

// buffer returns a byte slice from the free list. A new buffer is allocated if
// there are not any available on the free list. The returned byte slice should
// be returned to the fee list by using the recycleBuffer function when the
// caller is done with it.
func buffer() *[]byte {
	return bufferPool.Get().(*[]byte)
}

// recycleBuffer puts the provided byte slice, which should have been obtained
// via the buffer function, back on the free list.
func recycleBuffer(b *[]byte) {
	*b = (*b)[:0]
	bufferPool.Put(b)
}

// LogClosure is a closure that can be printed with %s to be used to
// generate expensive-to-create data for a detailed log level and avoid doing
// the work if the data isn't printed.
type LogClosure func() string

func (c LogClosure) String() string {
	return c()
}

// NewLogClosure casts a function to a LogClosure.
// See LogClosure for details.
func NewLogClosure(c func() string) LogClosure {
	return c
}

// SpewClosure returns a LogClosure that dumps value with go-spew
func SpewClosure(value interface{}) LogClosure {
	return func() string {
		return spew.Sdump(value)
	}
}

// LogAndMeasureExecutionTime logs that functionName started, and returns a
// function that logs it ended along with how long it took
func LogAndMeasureExecutionTime(log *Logger, functionName string) (onEnd func()) {
	start := time.Now()
	log.Debugf("%s start", functionName)
	return func() {
		log.Debugf("%s end. Took: %s", functionName, time.Since(start))
	}
}
