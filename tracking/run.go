package tracking

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atul219/Hotel-Reservation/pkg/errors"
	"github.com/atul219/Hotel-Reservation/pkg/log"
)

// RunStatus uses MLflow's numeric run status codes.
type RunStatus int

const (
	StatusRunning  RunStatus = 1
	StatusFinished RunStatus = 3
	StatusFailed   RunStatus = 4
)

func (s RunStatus) String() string {
	switch s {
	case StatusRunning:
		return "RUNNING"
	case StatusFinished:
		return "FINISHED"
	case StatusFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

type runMeta struct {
	ArtifactURI    string    `yaml:"artifact_uri"`
	EndTime        int64     `yaml:"end_time"`
	ExperimentID   string    `yaml:"experiment_id"`
	LifecycleStage string    `yaml:"lifecycle_stage"`
	RunID          string    `yaml:"run_id"`
	RunName        string    `yaml:"run_name"`
	RunUUID        string    `yaml:"run_uuid"`
	SourceType     int       `yaml:"source_type"`
	StartTime      int64     `yaml:"start_time"`
	Status         RunStatus `yaml:"status"`
	UserID         string    `yaml:"user_id"`
}

// keyPattern is the set of characters MLflow accepts in param and metric names.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_\-. /]+$`)

// Run is one tracked execution. Its methods are safe for concurrent use.
type Run struct {
	tracker *Tracker
	dir     string

	mu    sync.Mutex
	meta  runMeta
	steps map[string]int64
	ended bool
}

func newRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ID returns the run id.
func (r *Run) ID() string {
	return r.meta.RunID
}

// Dir returns the run directory.
func (r *Run) Dir() string {
	return r.dir
}

func (r *Run) writeMeta() error {
	return writeYAML(filepath.Join(r.dir, "meta.yaml"), r.meta)
}

func validKey(kind, key string) error {
	if !keyPattern.MatchString(key) || strings.Contains(key, "..") || path.IsAbs(key) {
		return errors.NewValidationError(kind, "invalid name", key)
	}
	return nil
}

func (r *Run) checkActive() error {
	if r.ended {
		return errors.NewValueError("tracking.Run", fmt.Sprintf("run %s has already ended", r.meta.RunID))
	}
	return nil
}

// LogParam records a parameter. Logging the same key twice with a
// different value is an error, as in MLflow.
func (r *Run) LogParam(key string, value interface{}) error {
	if err := validKey("param", key); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkActive(); err != nil {
		return err
	}

	p := filepath.Join(r.dir, "params", filepath.FromSlash(key))
	v := fmt.Sprint(value)
	if old, err := os.ReadFile(p); err == nil && string(old) != v {
		return errors.NewValidationError("param", fmt.Sprintf("%q already logged with value %q", key, old), v)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, "failed to create params directory")
	}
	if err := os.WriteFile(p, []byte(v), 0o644); err != nil {
		return errors.Wrapf(err, "failed to log param %s", key)
	}
	return nil
}

// LogParams records every entry of params in key order.
func (r *Run) LogParams(params map[string]interface{}) error {
	for _, k := range sortedKeys(params) {
		if err := r.LogParam(k, params[k]); err != nil {
			return err
		}
	}
	return nil
}

// LogMetric appends a value to the metric's history at the next step.
func (r *Run) LogMetric(key string, value float64) error {
	if err := validKey("metric", key); err != nil {
		return err
	}
	if math.IsNaN(value) {
		return errors.NewValidationError("metric", "value must not be NaN", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkActive(); err != nil {
		return err
	}
	if r.steps == nil {
		r.steps = make(map[string]int64)
	}
	step := r.steps[key]
	r.steps[key] = step + 1

	p := filepath.Join(r.dir, "metrics", filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, "failed to create metrics directory")
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "failed to log metric %s", key)
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%d %s %d\n", time.Now().UnixMilli(), strconv.FormatFloat(value, 'g', -1, 64), step)
	return errors.Wrapf(err, "failed to log metric %s", key)
}

// LogMetrics records every entry of metrics in key order.
func (r *Run) LogMetrics(metrics map[string]float64) error {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := r.LogMetric(k, metrics[k]); err != nil {
			return err
		}
	}
	return nil
}

// LogArtifact copies the local file into artifacts/<artifactPath>/ and
// uploads it to the mirror bucket when one is configured.
func (r *Run) LogArtifact(ctx context.Context, localPath, artifactPath string) error {
	if artifactPath != "" {
		if err := validKey("artifact_path", artifactPath); err != nil {
			return err
		}
	}
	r.mu.Lock()
	ended := r.ended
	r.mu.Unlock()
	if ended {
		return r.checkActive()
	}

	rel := path.Join(artifactPath, filepath.Base(localPath))
	dst := filepath.Join(r.dir, "artifacts", filepath.FromSlash(rel))
	if err := copyFile(localPath, dst); err != nil {
		return errors.Wrapf(err, "failed to log artifact %s", localPath)
	}

	t := r.tracker
	if t.mirror != nil {
		key := path.Join(t.experimentID, r.meta.RunID, "artifacts", rel)
		if err := t.mirror.Upload(ctx, t.mirrorBucket, key, localPath); err != nil {
			return errors.Wrapf(err, "failed to mirror artifact %s", localPath)
		}
	}
	t.logger.Debug("Logged artifact", log.RunIDKey, r.meta.RunID, log.PathKey, rel)
	return nil
}

// End marks the run with status and records the end time. Ending twice is an error.
func (r *Run) End(status RunStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkActive(); err != nil {
		return err
	}
	r.ended = true
	r.meta.Status = status
	r.meta.EndTime = time.Now().UnixMilli()
	if err := r.writeMeta(); err != nil {
		return err
	}
	r.tracker.logger.Info("Ended run", log.RunIDKey, r.meta.RunID, "status", status.String())
	return nil
}

// RunInfo is a run read back from the store.
type RunInfo struct {
	ID      string
	Name    string
	Status  RunStatus
	Params  map[string]string
	Metrics map[string]float64 // latest value per metric
}

// ReadRun loads a run of the tracker's experiment.
func (t *Tracker) ReadRun(runID string) (*RunInfo, error) {
	dir := filepath.Join(t.root, t.experimentID, runID)
	var meta runMeta
	if err := readYAML(filepath.Join(dir, "meta.yaml"), &meta); err != nil {
		return nil, errors.Wrapf(err, "failed to read run %s", runID)
	}
	info := &RunInfo{
		ID:      meta.RunID,
		Name:    meta.RunName,
		Status:  meta.Status,
		Params:  map[string]string{},
		Metrics: map[string]float64{},
	}

	paramsDir := filepath.Join(dir, "params")
	err := filepath.WalkDir(paramsDir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		key, _ := filepath.Rel(paramsDir, p)
		info.Params[filepath.ToSlash(key)] = string(data)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read params")
	}

	metricsDir := filepath.Join(dir, "metrics")
	err = filepath.WalkDir(metricsDir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		v, err := lastMetricValue(p)
		if err != nil {
			return err
		}
		key, _ := filepath.Rel(metricsDir, p)
		info.Metrics[filepath.ToSlash(key)] = v
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read metrics")
	}
	return info, nil
}

func lastMetricValue(p string) (float64, error) {
	f, err := os.Open(p)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var last string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	fields := strings.Fields(last)
	if len(fields) != 3 {
		return 0, errors.Newf("malformed metric line %q in %s", last, p)
	}
	return strconv.ParseFloat(fields[1], 64)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
