package audio

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/airenas/meetscribe/internal/pkg/cmdapp"
	"github.com/pkg/errors"
)

// ErrUnsupportedFormat is returned when audio can't be converted to a provider acceptable format
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// DefaultAccept lists extensions sent to the provider without conversion
var DefaultAccept = []string{"wav", "mp3", "m4a", "flac", "ogg", "webm", "mp4"}

// Normalizer converts audio with ffmpeg
type Normalizer struct {
	ffmpeg  string
	accept  map[string]bool
	workDir string
	// ReapLock is held for reading while ffmpeg runs, if set
	ReapLock *sync.RWMutex
}

// NewNormalizer creates Normalizer. Empty workDir means converting next to the input
func NewNormalizer(ffmpeg string, accept []string, workDir string) (*Normalizer, error) {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if len(accept) == 0 {
		accept = DefaultAccept
	}
	res := &Normalizer{ffmpeg: ffmpeg, workDir: workDir, accept: map[string]bool{}}
	for _, a := range accept {
		res.accept[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(a), "."))] = true
	}
	if workDir != "" {
		if err := os.MkdirAll(workDir, 0755); err != nil {
			return nil, errors.Wrapf(err, "can't create %s", workDir)
		}
	}
	cmdapp.Log.Infof("Normalizer: %s, accept: %v", ffmpeg, accept)
	return res, nil
}

// Normalize returns inputPath if the format is accepted, otherwise converts it to wav
// and returns the new file. The input file is never changed
func (n *Normalizer) Normalize(ctx context.Context, inputPath string) (string, error) {
	st, err := os.Stat(inputPath)
	if err != nil {
		return "", errors.Wrapf(ErrUnsupportedFormat, "can't read %s: %v", inputPath, err)
	}
	if st.IsDir() {
		return "", errors.Wrapf(ErrUnsupportedFormat, "%s is a dir", inputPath)
	}
	if n.Accepts(inputPath) {
		return inputPath, nil
	}
	out := n.outputPath(inputPath)
	if n.ReapLock != nil {
		n.ReapLock.RLock()
		defer n.ReapLock.RUnlock()
	}
	err = runCommand(ctx, n.ffmpeg, []string{"-y", "-i", inputPath, "-acodec", "pcm_s16le", "-ar", "44100", "-ac", "2", out})
	if err != nil {
		os.Remove(out)
		return "", errors.Wrapf(ErrUnsupportedFormat, "can't convert %s: %v", inputPath, err)
	}
	ost, err := os.Stat(out)
	if err != nil || ost.Size() == 0 {
		os.Remove(out)
		return "", errors.Wrapf(ErrUnsupportedFormat, "no output for %s", inputPath)
	}
	cmdapp.Log.Infof("Converted %s -> %s", inputPath, out)
	return out, nil
}

// Accepts checks the file extension
func (n *Normalizer) Accepts(file string) bool {
	return n.accept[strings.ToLower(strings.TrimPrefix(filepath.Ext(file), "."))]
}

func (n *Normalizer) outputPath(in string) string {
	dir := n.workDir
	if dir == "" {
		dir = filepath.Dir(in)
	}
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	return filepath.Join(dir, base+"_converted.wav")
}
