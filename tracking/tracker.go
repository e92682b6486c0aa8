// Package tracking records experiment runs in an MLflow style file store:
//
//	<root>/<experiment-id>/meta.yaml
//	<root>/<experiment-id>/<run-id>/meta.yaml
//	<root>/<experiment-id>/<run-id>/params/<key>
//	<root>/<experiment-id>/<run-id>/metrics/<key>
//	<root>/<experiment-id>/<run-id>/artifacts/...
//
// Artifacts can additionally be mirrored to an object store bucket.
package tracking

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/atul219/Hotel-Reservation/pkg/errors"
	"github.com/atul219/Hotel-Reservation/pkg/log"
	"github.com/atul219/Hotel-Reservation/storage"
)

// DefaultExperimentName is used when no experiment name is configured.
const DefaultExperimentName = "Default"

type experimentMeta struct {
	ArtifactLocation string `yaml:"artifact_location"`
	CreationTime     int64  `yaml:"creation_time"`
	ExperimentID     string `yaml:"experiment_id"`
	LastUpdateTime   int64  `yaml:"last_update_time"`
	LifecycleStage   string `yaml:"lifecycle_stage"`
	Name             string `yaml:"name"`
}

// Tracker creates runs inside one experiment.
type Tracker struct {
	root         string
	experimentID string
	logger       log.Logger

	mirror       storage.ObjectStore
	mirrorBucket string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the tracker logger.
func WithLogger(logger log.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// WithArtifactMirror uploads every logged artifact to bucket as well,
// under <experiment-id>/<run-id>/artifacts/.
func WithArtifactMirror(store storage.ObjectStore, bucket string) Option {
	return func(t *Tracker) {
		t.mirror = store
		t.mirrorBucket = bucket
	}
}

// NewTracker opens the store at root, creating the named experiment when
// it does not exist yet.
func NewTracker(root, experimentName string, opts ...Option) (*Tracker, error) {
	if root == "" {
		return nil, errors.NewValidationError("tracking_dir", "must not be empty", root)
	}
	if experimentName == "" {
		experimentName = DefaultExperimentName
	}
	t := &Tracker{root: root, logger: log.Nop()}
	for _, opt := range opts {
		opt(t)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create tracking directory %s", root)
	}

	id, err := t.findOrCreateExperiment(experimentName)
	if err != nil {
		return nil, err
	}
	t.experimentID = id
	return t, nil
}

// ExperimentID returns the id of the tracker's experiment.
func (t *Tracker) ExperimentID() string {
	return t.experimentID
}

func (t *Tracker) findOrCreateExperiment(name string) (string, error) {
	entries, err := os.ReadDir(t.root)
	if err != nil {
		return "", errors.Wrap(err, "failed to list experiments")
	}
	next := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if n, err := strconv.Atoi(e.Name()); err == nil && n >= next {
			next = n + 1
		}
		var meta experimentMeta
		if err := readYAML(filepath.Join(t.root, e.Name(), "meta.yaml"), &meta); err != nil {
			continue
		}
		if meta.Name == name {
			return meta.ExperimentID, nil
		}
	}

	id := strconv.Itoa(next)
	dir := filepath.Join(t.root, id)
	now := time.Now().UnixMilli()
	meta := experimentMeta{
		ArtifactLocation: dir,
		CreationTime:     now,
		ExperimentID:     id,
		LastUpdateTime:   now,
		LifecycleStage:   "active",
		Name:             name,
	}
	if err := writeYAML(filepath.Join(dir, "meta.yaml"), meta); err != nil {
		return "", err
	}
	t.logger.Info("Created experiment", "experiment", name, "experiment_id", id)
	return id, nil
}

// WithRun starts a run, passes it to fn and always ends it: FINISHED when
// fn returns nil, FAILED when it returns an error or panics. fn's error is
// returned unchanged; a failure to close the run is only returned when fn
// succeeded.
func (t *Tracker) WithRun(ctx context.Context, name string, fn func(ctx context.Context, run *Run) error) (err error) {
	run, err := t.StartRun(name)
	if err != nil {
		return err
	}
	defer func() {
		status := StatusFinished
		if err != nil {
			status = StatusFailed
		}
		if endErr := run.End(status); endErr != nil && err == nil {
			err = endErr
		}
	}()
	defer errors.Recover(&err, "tracking.WithRun")

	return fn(ctx, run)
}

// StartRun creates a new RUNNING run. Prefer WithRun, which guarantees the run is ended.
func (t *Tracker) StartRun(name string) (*Run, error) {
	r := &Run{
		tracker: t,
		meta: runMeta{
			ExperimentID:   t.experimentID,
			LifecycleStage: "active",
			RunName:        name,
			SourceType:     4,
			StartTime:      time.Now().UnixMilli(),
			Status:         StatusRunning,
			UserID:         currentUser(),
		},
	}
	r.meta.RunID = newRunID()
	r.meta.RunUUID = r.meta.RunID
	r.dir = filepath.Join(t.root, t.experimentID, r.meta.RunID)
	r.meta.ArtifactURI = filepath.Join(r.dir, "artifacts")

	for _, sub := range []string{"params", "metrics", "artifacts", "tags"} {
		if err := os.MkdirAll(filepath.Join(r.dir, sub), 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create run directory %s", r.dir)
		}
	}
	if err := r.writeMeta(); err != nil {
		return nil, err
	}
	t.logger.Info("Started run", log.RunIDKey, r.meta.RunID, "run_name", name)
	return r, nil
}

// RunIDs lists the runs of the experiment in lexical order.
func (t *Tracker) RunIDs() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(t.root, t.experimentID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

func writeYAML(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to encode yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
