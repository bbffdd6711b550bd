package provider

import (
	"context"

	"github.com/atotto/clipboard"
)

// System uses the OS clipboard (pbcopy, xclip/xsel/wl-clipboard, Win32).
type System struct{}

func NewSystem() *System {
	return &System{}
}

func (s *System) Name() string {
	return "system"
}

// Available is false when no clipboard utility was found at init.
func (s *System) Available() bool {
	return !clipboard.Unsupported
}

func (s *System) ReadText(_ context.Context) (string, error) {
	return clipboard.ReadAll()
}

func (s *System) WriteText(_ context.Context, text string) error {
	return clipboard.WriteAll(text)
}
