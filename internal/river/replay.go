package river

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

const maxReplayLine = 1 << 20

// ReplaySource reads callbacks from JSON lines, one Callback object per line.
// Blank lines and lines starting with '#' are skipped.
type ReplaySource struct {
	r io.Reader
}

// NewReplaySource creates a source reading from r.
func NewReplaySource(r io.Reader) *ReplaySource {
	return &ReplaySource{r: r}
}

// Run delivers every callback in the input and returns nil at end of input.
func (s *ReplaySource) Run(ctx context.Context, handle func(Callback) error) error {
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxReplayLine)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		var cb Callback
		if err := json.Unmarshal(raw, &cb); err != nil {
			return fmt.Errorf("replay line %d: %w", line, err)
		}
		if err := handle(cb); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	return nil
}
