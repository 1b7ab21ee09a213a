// Package dataprocess saves snapshots of the navigator's planning state to disk.
package dataprocess

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/rdk/logging"
	pc "go.viam.com/rdk/pointcloud"

	"github.com/viam-modules/viam-localnav/controlloop"
)

const (
	// SnapshotTimeFormat is the timestamp format used in snapshot filenames.
	SnapshotTimeFormat = "2006-01-02T15:04:05.0000Z"
	// pathHeight lifts path waypoints above obstacle points so both stay visible.
	pathHeight = 0.05
	poseHeight = 0.1
)

var (
	obstacleColor = color.NRGBA{R: 255, A: 255}
	pathColor     = color.NRGBA{B: 255, A: 255}
	poseColor     = color.NRGBA{G: 255, A: 255}
	goalColor     = color.NRGBA{R: 255, G: 255, A: 255}
)

// CreateTimestampFilename creates an absolute filename with a prefix and timestamp written
// into the filename.
func CreateTimestampFilename(dataDirectory, prefix, fileType string, timeStamp time.Time) string {
	return filepath.Join(dataDirectory, prefix+"_data_"+timeStamp.UTC().Format(SnapshotTimeFormat)+fileType)
}

// SnapshotCloud renders a record as a colored point cloud: obstacles on the ground plane,
// path waypoints above them, then the pose and the goal.
func SnapshotCloud(rec controlloop.Record) (pc.PointCloud, error) {
	cloud := pc.NewWithPrealloc(len(rec.Obstacles) + len(rec.Path) + 2)
	for _, p := range rec.Obstacles {
		if err := cloud.Set(r3.Vector{X: p.X, Y: p.Y}, pc.NewColoredData(obstacleColor)); err != nil {
			return nil, err
		}
	}
	for _, p := range rec.Path {
		if err := cloud.Set(r3.Vector{X: p.X, Y: p.Y, Z: pathHeight}, pc.NewColoredData(pathColor)); err != nil {
			return nil, err
		}
	}
	if err := cloud.Set(r3.Vector{X: rec.Pose.X, Y: rec.Pose.Y, Z: poseHeight}, pc.NewColoredData(poseColor)); err != nil {
		return nil, err
	}
	if err := cloud.Set(r3.Vector{X: rec.Goal.X, Y: rec.Goal.Y, Z: poseHeight}, pc.NewColoredData(goalColor)); err != nil {
		return nil, err
	}
	return cloud, nil
}

// WritePCDToFile encodes the pointcloud and then saves it to the passed filename.
func WritePCDToFile(pointcloud pc.PointCloud, filename string) error {
	buf := new(bytes.Buffer)
	if err := pc.ToPCD(pointcloud, buf, pc.PCDBinary); err != nil {
		return err
	}
	return WriteBytesToFile(buf.Bytes(), filename)
}

type recordSummary struct {
	Pose      [3]float64   `json:"pose"`
	Goal      [2]float64   `json:"goal"`
	Path      [][2]float64 `json:"path"`
	Obstacles int          `json:"obstacles"`
	Outcome   string       `json:"outcome"`
	Status    string       `json:"status"`
	Command   [2]float64   `json:"command"`
}

// WriteJSONToFile encodes a summary of the record and then saves it to the passed filename.
func WriteJSONToFile(rec controlloop.Record, filename string) error {
	summary := recordSummary{
		Pose:      [3]float64{rec.Pose.X, rec.Pose.Y, rec.Pose.Theta},
		Goal:      [2]float64{rec.Goal.X, rec.Goal.Y},
		Path:      make([][2]float64, 0, len(rec.Path)),
		Obstacles: len(rec.Obstacles),
		Outcome:   rec.Outcome.String(),
		Status:    rec.Status.String(),
		Command:   [2]float64{rec.Command.Linear, rec.Command.Angular},
	}
	for _, p := range rec.Path {
		summary.Path = append(summary.Path, [2]float64{p.X, p.Y})
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return WriteBytesToFile(data, filename)
}

// WriteBytesToFile writes the passed bytes to the passed filename.
func WriteBytesToFile(bytes []byte, filename string) error {
	//nolint:gosec
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	return writeAndClose(f, bytes)
}

// writeAndClose writes data through a buffer and closes f on every path.
func writeAndClose(f io.WriteCloser, data []byte) error {
	w := bufio.NewWriter(f)
	if _, err := w.Write(data); err != nil {
		return multierr.Combine(err, f.Close())
	}
	if err := w.Flush(); err != nil {
		return multierr.Combine(err, f.Close())
	}
	return f.Close()
}

// Recorder saves every Nth record to a data directory as a PCD snapshot and a JSON summary.
type Recorder struct {
	dataDirectory string
	every         int
	logger        logging.Logger

	mu    sync.Mutex
	count int
	saved int
}

// NewRecorder creates dataDirectory if needed and returns a Recorder writing into it.
func NewRecorder(dataDirectory string, every int, logger logging.Logger) (*Recorder, error) {
	if err := os.MkdirAll(dataDirectory, 0o750); err != nil {
		return nil, errors.Wrapf(err, "failed to create data directory %s", dataDirectory)
	}
	if every < 1 {
		every = 1
	}
	return &Recorder{dataDirectory: dataDirectory, every: every, logger: logger}, nil
}

// Saved returns how many snapshots were written.
func (r *Recorder) Saved() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved
}

// Record writes rec if it is due. Failures are logged and otherwise ignored.
func (r *Recorder) Record(ctx context.Context, rec controlloop.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	if (r.count-1)%r.every != 0 {
		return
	}

	now := time.Now()
	prefix := fmt.Sprintf("plan_%06d", r.count)
	cloud, err := SnapshotCloud(rec)
	if err != nil {
		r.logger.Warnw("failed to build snapshot cloud", "error", err)
		return
	}
	if err := WritePCDToFile(cloud, CreateTimestampFilename(r.dataDirectory, prefix, ".pcd", now)); err != nil {
		r.logger.Warnw("failed to save snapshot cloud", "error", err)
		return
	}
	if err := WriteJSONToFile(rec, CreateTimestampFilename(r.dataDirectory, prefix, ".json", now)); err != nil {
		r.logger.Warnw("failed to save snapshot summary", "error", err)
		return
	}
	r.saved++
}
