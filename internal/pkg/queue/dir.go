package queue

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/airenas/meetscribe/internal/pkg/cmdapp"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Dir keeps one marker file per queued job in a local directory
type Dir struct {
	Path   string
	MaxAge time.Duration

	now func() time.Time
}

// NewDir creates Dir instance, makes the directory if needed
func NewDir(path string, maxAge time.Duration) (*Dir, error) {
	cmdapp.Log.Infof("Init queue dir at: %s", path)
	if path == "" {
		return nil, errors.New("No queue path provided")
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, errors.Wrapf(err, "can't create dir %s", path)
	}
	return &Dir{Path: path, MaxAge: maxAge, now: time.Now}, nil
}

// Enqueue writes marker for id. Existing marker is left as is
func (d *Dir) Enqueue(id string) (string, error) {
	if err := checkID(id); err != nil {
		return "", err
	}
	file := filepath.Join(d.Path, markerName(id))
	if _, err := os.Stat(file); err == nil {
		cmdapp.Log.Infof("Marker exists: %s", file)
		return id, nil
	}
	bytes, err := yaml.Marshal(&marker{ID: id, CreatedAt: d.now().UTC()})
	if err != nil {
		return "", errors.Wrap(err, "can't marshal marker")
	}
	if err := writeAtomic(d.Path, file, bytes); err != nil {
		return "", err
	}
	cmdapp.Log.Infof("Queued: %s", id)
	return id, nil
}

func writeAtomic(dir, file string, data []byte) error {
	f, err := os.CreateTemp(dir, ".marker-*.tmp")
	if err != nil {
		return errors.Wrap(err, "can't create temp file")
	}
	tmp := f.Name()
	_, err = f.Write(data)
	if cErr := f.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "can't write %s", tmp)
	}
	if err := os.Rename(tmp, file); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "can't rename to %s", file)
	}
	return nil
}

// ListPending returns queued ids, oldest first
func (d *Dir) ListPending() ([]string, error) {
	ms, err := d.list()
	if err != nil {
		return nil, err
	}
	res := make([]string, len(ms))
	for i, m := range ms {
		res[i] = m.ID
	}
	return res, nil
}

// Stale returns ids of markers older than MaxAge, oldest first
func (d *Dir) Stale() ([]string, error) {
	if d.MaxAge <= 0 {
		return nil, nil
	}
	ms, err := d.list()
	if err != nil {
		return nil, err
	}
	limit := d.now().Add(-d.MaxAge)
	var res []string
	for _, m := range ms {
		if m.CreatedAt.Before(limit) {
			res = append(res, m.ID)
		}
	}
	return res, nil
}

func (d *Dir) list() ([]*marker, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read dir %s", d.Path)
	}
	res := make([]*marker, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := idFromName(e.Name())
		if !ok {
			continue
		}
		m, err := readMarker(filepath.Join(d.Path, e.Name()), id)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			cmdapp.Log.Warnf("Can't read marker %s: %v", e.Name(), err)
			continue
		}
		res = append(res, m)
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

// Remove deletes the marker. Missing marker is not an error
func (d *Dir) Remove(id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(d.Path, markerName(id)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "can't remove marker %s", id)
	}
	return nil
}

// Watch notifies about new markers until ctx is done
func (d *Dir) Watch(ctx context.Context) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "can't init watcher")
	}
	if err := w.Add(d.Path); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "can't watch %s", d.Path)
	}
	res := make(chan struct{}, 1)
	go func() {
		defer close(res)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if _, mOk := idFromName(filepath.Base(e.Name)); !mOk {
					continue
				}
				if e.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case res <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				cmdapp.Log.Warnf("Watcher error: %v", err)
			}
		}
	}()
	return res, nil
}
