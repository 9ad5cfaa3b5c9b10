//go:build linux

package system

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// WatchKeyboard watches Linux evdev devices under /dev/input/event* for the
// board shortcuts: Ctrl+S saves, F4 asks the app to close. Close fires at
// most once.
//
// It is best-effort: if no input devices are available, it logs and returns.
func WatchKeyboard(ctx context.Context, logger logger, handlers KeyHandlers) {
	// Determine input_event size based on arch timeval size.
	// input_event = timeval + u16 type + u16 code + s32 value.
	tvSize := int(binary.Size(unix.Timeval{}))
	eventSize := tvSize + 2 + 2 + 4
	if eventSize <= 0 {
		eventSize = 24
	}

	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil || len(paths) == 0 {
		if logger != nil {
			logger.Infof("input", "no evdev devices found for keyboard shortcuts")
		}
		return
	}

	var closeOnce sync.Once
	var saveMu sync.Mutex
	dispatch := func(action KeyAction) {
		if logger != nil {
			logger.Infof("input", "key shortcut: %s", action)
		}
		switch action {
		case KeyClose:
			closeOnce.Do(func() { handlers.run(KeyClose) })
		case KeySave:
			saveMu.Lock()
			handlers.run(KeySave)
			saveMu.Unlock()
		}
	}

	for _, path := range paths {
		p := path
		go func() {
			fd, err := unix.Open(p, unix.O_RDONLY|unix.O_NONBLOCK, 0)
			if err != nil {
				return
			}
			f := os.NewFile(uintptr(fd), p)
			defer func() {
				_ = f.Close()
			}()

			var state keyState
			buf := make([]byte, 4096)

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				pollFds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
				_, pollErr := unix.Poll(pollFds, 250)
				if pollErr != nil {
					if pollErr == unix.EINTR {
						continue
					}
					// Device might have gone away.
					return
				}
				if pollFds[0].Revents&unix.POLLIN == 0 {
					continue
				}

				n, readErr := unix.Read(fd, buf)
				if readErr != nil {
					if readErr == unix.EAGAIN || readErr == unix.EINTR {
						continue
					}
					return
				}

				// Parse as a sequence of input_event records.
				for off := 0; off+eventSize <= n; off += eventSize {
					rec := buf[off : off+eventSize]
					// type and code are immediately after timeval.
					typ := binary.LittleEndian.Uint16(rec[tvSize : tvSize+2])
					code := binary.LittleEndian.Uint16(rec[tvSize+2 : tvSize+4])
					value := int32(binary.LittleEndian.Uint32(rec[tvSize+4 : tvSize+8]))
					if action := state.feed(typ, code, value); action != KeyNone {
						dispatch(action)
					}
				}
			}
		}()
	}
}
