package gtfsdb

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/MBL11/transit-app-sub002/internal/logging"
)

// tidyFlags removes orphans and duplicates and minimizes shapes, services
// and ids. See the gtfstidy README for the single letters.
const tidyFlags = "-SCRmTcdsOeD"

// tidyCommand builds the gtfstidy invocation. It runs as a go tool of this
// module; tests replace it.
var tidyCommand = func(ctx context.Context, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, "go", append([]string{"tool", "gtfstidy"}, args...)...)
}

// tidyGTFSData runs a feed zip through gtfstidy and returns the tidied zip.
func tidyGTFSData(ctx context.Context, data []byte, logger *slog.Logger) ([]byte, error) {
	dir, err := os.MkdirTemp("", "gtfstidy-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create gtfstidy work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logging.LogError(logger, "failed to remove gtfstidy work dir", err, slog.String("dir", dir))
		}
	}()

	input := filepath.Join(dir, "input.zip")
	output := filepath.Join(dir, "output.zip")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write gtfstidy input: %w", err)
	}

	out, err := tidyCommand(ctx, tidyFlags, "-o", output, input).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("gtfstidy failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	tidied, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("failed to read gtfstidy output: %w", err)
	}

	logging.LogOperation(logger, "gtfstidy_completed",
		slog.Int("input_bytes", len(data)),
		slog.Int("output_bytes", len(tidied)))
	return tidied, nil
}
