package buffer

import "errors"

// ErrBufferExceeded is raised by allocBuf when every frame is pinned
// and no victim can be chosen.
var ErrBufferExceeded = errors.New("buffer: all frames are pinned")

// ErrPageNotPinned is raised by UnpinPage when the target frame's pin
// count is already zero.
var ErrPageNotPinned = errors.New("buffer: page is not pinned")

// ErrPagePinned is raised by FlushFile when one of the file's frames is
// still pinned.
var ErrPagePinned = errors.New("buffer: page is pinned")
