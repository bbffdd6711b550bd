package provider

import (
	"context"

	"github.com/gopasspw/clipboard"
)

// Gopass uses the OS clipboard through gopasspw/clipboard, which honors
// context cancellation. When Sensitive is set, writes are marked as
// passwords so clipboard managers that support the hint skip history.
type Gopass struct {
	Sensitive bool
}

func NewGopass(sensitive bool) *Gopass {
	return &Gopass{Sensitive: sensitive}
}

func (g *Gopass) Name() string {
	return "gopass"
}

func (g *Gopass) Available() bool {
	return !clipboard.IsUnsupported()
}

func (g *Gopass) ReadText(ctx context.Context) (string, error) {
	return clipboard.ReadAllString(ctx)
}

func (g *Gopass) WriteText(ctx context.Context, text string) error {
	if g.Sensitive {
		return clipboard.WritePassword(ctx, []byte(text))
	}
	return clipboard.WriteAll(ctx, []byte(text))
}
