package queue

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const markerExt = ".marker"

var idRegexp = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

type marker struct {
	ID        string    `yaml:"id"`
	CreatedAt time.Time `yaml:"createdAt"`
}

func checkID(id string) error {
	if !idRegexp.MatchString(id) || strings.HasSuffix(id, markerExt) {
		return errors.Errorf("wrong id '%s'", id)
	}
	return nil
}

func markerName(id string) string {
	return id + markerExt
}

func idFromName(name string) (string, bool) {
	if !strings.HasSuffix(name, markerExt) || strings.HasPrefix(name, ".") {
		return "", false
	}
	return strings.TrimSuffix(name, markerExt), true
}

// readMarker falls back to the file mod time when the body can't be parsed
func readMarker(file, id string) (*marker, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var res marker
	if err := yaml.Unmarshal(bytes, &res); err == nil && !res.CreatedAt.IsZero() {
		res.ID = id
		return &res, nil
	}
	st, err := os.Stat(file)
	if err != nil {
		return nil, err
	}
	return &marker{ID: id, CreatedAt: st.ModTime().UTC()}, nil
}
