package application

import (
	"context"
	"fmt"

	"github.com/davarch/build-compare/internal/domain"
	"github.com/davarch/build-compare/internal/presenter"
)

// CopySummary puts the markdown summary of g on the clipboard and returns the copied text.
func CopySummary(ctx context.Context, clip domain.Clipboard, g *domain.CommitterGroup) (string, error) {
	text := presenter.Markdown(g)
	if err := clip.Copy(ctx, text); err != nil {
		return "", fmt.Errorf("copy summary: %w", err)
	}
	return text, nil
}
