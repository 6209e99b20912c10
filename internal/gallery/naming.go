package gallery

import (
	"strconv"
	"time"
)

// photoExt is the fixed extension of stored photos.
const photoExt = ".jpeg"

// nameAllocator hands out "<unix-millis>.jpeg" names that never repeat
// within the process, even for captures in the same millisecond.
type nameAllocator struct {
	last int64
}

func (a *nameAllocator) next(now time.Time, taken func(name string) bool) string {
	ms := now.UnixMilli()
	if ms <= a.last {
		ms = a.last + 1
	}
	for taken(strconv.FormatInt(ms, 10) + photoExt) {
		ms++
	}
	a.last = ms
	return strconv.FormatInt(ms, 10) + photoExt
}
