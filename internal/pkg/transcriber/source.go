package transcriber

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// SourceKind tells where the audio is
type SourceKind int

const (
	// Local file on the disk, must be uploaded to the provider
	Local SourceKind = iota + 1
	// Remote URL the provider can fetch itself
	Remote
)

const localPrefix = "local:"

// Source is a parsed source reference
type Source struct {
	Kind     SourceKind
	Location string
}

// ParseSource parses "local:<path>", absolute path or http(s) URL
func ParseSource(ref string) (*Source, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.Wrap(ErrWrongSource, "empty source")
	}
	if strings.HasPrefix(ref, localPrefix) {
		p := strings.TrimPrefix(ref, localPrefix)
		if p == "" {
			return nil, errors.Wrapf(ErrWrongSource, "no path in '%s'", ref)
		}
		return &Source{Kind: Local, Location: filepath.Clean(p)}, nil
	}
	if filepath.IsAbs(ref) {
		return &Source{Kind: Local, Location: filepath.Clean(ref)}, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil, errors.Wrapf(ErrWrongSource, "can't parse '%s': %v", ref, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Wrapf(ErrWrongSource, "unsupported source '%s'", ref)
	}
	return &Source{Kind: Remote, Location: ref}, nil
}

// CheckSource verifies a local source is a readable file
func CheckSource(src *Source) error {
	if src.Kind != Local {
		return nil
	}
	f, err := os.Open(src.Location)
	if err != nil {
		return errors.Wrapf(ErrWrongSource, "can't open '%s': %v", src.Location, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return errors.Wrapf(ErrWrongSource, "can't stat '%s': %v", src.Location, err)
	}
	if st.IsDir() {
		return errors.Wrapf(ErrWrongSource, "'%s' is a dir", src.Location)
	}
	return nil
}
