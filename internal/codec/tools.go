package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// pngquantQualityTooLow is pngquant's exit status when the result would fall
// below the requested minimum quality.
const pngquantQualityTooLow = 99

// ErrToolFailed marks a post-processor that exited with an error.
var ErrToolFailed = errors.New("post-processor failed")

// Tools holds resolved paths of optional command-line post-processors.
// An empty path disables that step.
type Tools struct {
	Jpegtran string
	Pngquant string
	Timeout  time.Duration
}

// LookupTools resolves the configured commands on PATH. Missing commands are
// left empty so encoding falls back to the built-in encoders.
func LookupTools(jpegtran, pngquant string, timeout time.Duration) Tools {
	return Tools{
		Jpegtran: lookPath(jpegtran),
		Pngquant: lookPath(pngquant),
		Timeout:  timeout,
	}
}

func lookPath(command string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return ""
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return ""
	}
	return resolved
}

// ProgressiveJPEG losslessly rewrites a baseline JPEG as progressive with
// optimized Huffman tables and stripped metadata.
func (t Tools) ProgressiveJPEG(ctx context.Context, data []byte) ([]byte, error) {
	out, _, err := t.run(ctx, t.Jpegtran, []string{"-copy", "none", "-optimize", "-progressive"}, data)
	if err != nil {
		return nil, fmt.Errorf("%w: jpegtran: %w", ErrToolFailed, err)
	}
	return out, nil
}

// QuantizePNG reduces a PNG to a palette with the given maximum quality. When
// pngquant cannot reach the quality floor, or its output is larger, the input
// is returned unchanged.
func (t Tools) QuantizePNG(ctx context.Context, data []byte, quality int) ([]byte, error) {
	args := []string{"--quality=0-" + strconv.Itoa(quality), "--speed", "1", "--strip", "-"}
	out, code, err := t.run(ctx, t.Pngquant, args, data)
	if code == pngquantQualityTooLow {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: pngquant: %w", ErrToolFailed, err)
	}
	if len(out) == 0 || len(out) >= len(data) {
		return data, nil
	}
	return out, nil
}

func (t Tools) run(ctx context.Context, binary string, args []string, input []byte) ([]byte, int, error) {
	if binary == "" {
		return nil, -1, errors.New("command not configured")
	}
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, code, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, code, err
	}
	return stdout.Bytes(), 0, nil
}
