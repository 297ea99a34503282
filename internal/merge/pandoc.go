package merge

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Pandoc converts Markdown by running the pandoc binary.
type Pandoc struct {
	// Bin is the executable; empty means "pandoc" on PATH.
	Bin string
}

// Convert runs `pandoc -f markdown -t <format> -o <outPath>` with markdown on stdin.
func (p Pandoc) Convert(ctx context.Context, markdown []byte, format, outPath string) error {
	bin := p.Bin
	if bin == "" {
		bin = "pandoc"
	}
	cmd := exec.CommandContext(ctx, bin, "-f", "markdown", "-t", format, "-o", outPath)
	cmd.Stdin = bytes.NewReader(markdown)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("merge: pandoc %s: %w: %s", format, err, msg)
		}
		return fmt.Errorf("merge: pandoc %s: %w", format, err)
	}
	return nil
}
