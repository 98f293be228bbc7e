package audio

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/airenas/meetscribe/internal/pkg/cmdapp"
	"github.com/pkg/errors"
)

func runCommand(ctx context.Context, name string, args []string) error {
	cmdapp.Log.Infof("Running command: %s %s", name, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, name, args...)
	var outputBuffer bytes.Buffer
	cmd.Stdout = &outputBuffer
	cmd.Stderr = &outputBuffer
	err := cmd.Run()
	if err != nil {
		return errors.Wrap(err, "Output: "+tail(outputBuffer.String(), 500))
	}
	cmdapp.Log.Debugf("Finished: %s", name)
	return nil
}

func tail(s string, l int) string {
	if len(s) > l {
		return "..." + s[len(s)-l:]
	}
	return s
}
