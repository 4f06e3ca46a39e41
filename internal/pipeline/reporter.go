package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pulseline/pulseline-go/internal/errors"
)

const meterWidth = 10

// Reporter writes detection events to the console and, when enabled, to a
// timestamped beat log file. It is owned by the consumer loop and is not
// safe for concurrent use.
type Reporter struct {
	out     io.Writer
	visual  bool
	logFile *os.File
	logW    *bufio.Writer
}

// NewReporter opens the beat log file under dir when logEnabled is set.
// The file name carries the UTC start time so repeated runs never clobber
// each other.
func NewReporter(out io.Writer, visual, logEnabled bool, dir string) (*Reporter, error) {
	r := &Reporter{out: out, visual: visual}
	if !logEnabled {
		return r, nil
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.New(err).
			Component("pipeline").
			Category(errors.CategoryFileIO).
			Context("path", dir).
			Build()
	}

	now := time.Now().UTC()
	name := fmt.Sprintf("beat_log_%s.txt", now.Format("20060102_150405Z"))
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, errors.New(err).
			Component("pipeline").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	r.logFile = f
	r.logW = bufio.NewWriter(f)
	fmt.Fprintf(r.logW, "# Beat detection log started %s\n", now.Format(time.RFC3339))
	fmt.Fprintln(r.logW, "# Timestamp,BPM,Onset,Pitch(Hz)")
	return r, nil
}

// LogPath returns the beat log file path, or "" when logging is disabled.
func (r *Reporter) LogPath() string {
	if r.logFile == nil {
		return ""
	}
	return r.logFile.Name()
}

// Report renders one event. Beat events drive the visual meter; every
// event lands in the log file when one is open.
func (r *Reporter) Report(ev Event, avg float32) {
	if r.logW != nil {
		onset := 0
		if ev.IsOnset {
			onset = 1
		}
		fmt.Fprintf(r.logW, "%s,%.1f,%d,%.3f\n",
			time.Now().Format("15:04:05.000"), ev.BPM, onset, ev.PitchHz)
	}

	if !ev.IsBeat {
		return
	}

	if r.visual {
		fmt.Fprintf(r.out, "\r%s BPM: %5.1f  avg: %5.1f ", meter(ev.BPM), ev.BPM, avg)
	} else {
		fmt.Fprintf(r.out, "beat  bpm=%.1f  avg=%.1f  pitch=%.1f\n", ev.BPM, avg, ev.PitchHz)
	}
}

// Summary prints the end-of-run statistics block.
func (r *Reporter) Summary(s *RunStats, avgBPM float32, dropped uint64) {
	if r.visual {
		fmt.Fprintln(r.out)
	}
	fmt.Fprintln(r.out, "--- session summary ---")
	fmt.Fprintf(r.out, "runtime:        %s\n", time.Since(s.Start).Round(time.Millisecond))
	fmt.Fprintf(r.out, "beats:          %d\n", s.Beats)
	fmt.Fprintf(r.out, "onsets:         %d\n", s.Onsets)
	fmt.Fprintf(r.out, "dropped events: %d\n", dropped)
	if avgBPM > 0 {
		fmt.Fprintf(r.out, "average BPM:    %.1f\n", avgBPM)
	}
	if s.ProcCount > 0 {
		fmt.Fprintf(r.out, "processing ms:  min=%.3f max=%.3f avg=%.3f\n",
			s.ProcMin, s.ProcMax, s.ProcSum/float64(s.ProcCount))
	}
	if p := r.LogPath(); p != "" {
		fmt.Fprintf(r.out, "beat log:       %s\n", p)
	}
}

// Close flushes and closes the beat log file.
func (r *Reporter) Close() error {
	if r.logFile == nil {
		return nil
	}
	if err := r.logW.Flush(); err != nil {
		r.logFile.Close()
		return err
	}
	return r.logFile.Close()
}

// meter maps a tempo onto a fixed-width intensity bar.
func meter(bpm float32) string {
	n := int(bpm / 20)
	if n < 0 {
		n = 0
	}
	if n > meterWidth {
		n = meterWidth
	}
	return strings.Repeat("#", n) + strings.Repeat("-", meterWidth-n)
}

// RunStats accumulates per-session counters on the consumer side.
type RunStats struct {
	Start     time.Time
	Beats     uint64
	Onsets    uint64
	ProcMin   float64
	ProcMax   float64
	ProcSum   float64
	ProcCount uint64
}

// Observe folds one event into the counters.
func (s *RunStats) Observe(ev Event) {
	if ev.IsBeat {
		s.Beats++
	}
	if ev.IsOnset {
		s.Onsets++
	}
	// ProcessMS stays zero when timing is not enabled; the summary skips
	// the timing line in that case.
	if ev.ProcessMS <= 0 {
		return
	}
	if s.ProcCount == 0 || ev.ProcessMS < s.ProcMin {
		s.ProcMin = ev.ProcessMS
	}
	if ev.ProcessMS > s.ProcMax {
		s.ProcMax = ev.ProcessMS
	}
	s.ProcSum += ev.ProcessMS
	s.ProcCount++
}
