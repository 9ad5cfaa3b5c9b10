//go:build !linux

package system

import "context"

// WatchKeyboard is a no-op on platforms without evdev.
func WatchKeyboard(ctx context.Context, logger logger, handlers KeyHandlers) {
	if logger != nil {
		logger.Infof("input", "keyboard shortcuts are only watched on linux")
	}
}
