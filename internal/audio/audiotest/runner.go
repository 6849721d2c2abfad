// Package audiotest provides a fake FFmpeg/ffprobe runner for tests.
package audiotest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Media describes what the fake ffprobe reports for a file.
type Media struct {
	Codec           string
	BitrateKbps     int
	SampleRate      int
	Channels        int
	DurationSeconds float64
	Tags            map[string]string
	NoAudio         bool
}

// DefaultMedia is a compliant mono MP3.
func DefaultMedia() Media {
	return Media{Codec: "mp3", BitrateKbps: 128, SampleRate: 44100, Channels: 1, DurationSeconds: 1}
}

// Call is one recorded process invocation.
type Call struct {
	Name string
	Args []string
}

// Runner simulates the media tools. Concat joins the listed files byte for
// byte, a single-input encode copies its input and applies -b:a and -ar,
// and ffprobe answers from a per-path registry.
type Runner struct {
	mu    sync.Mutex
	media map[string]Media
	calls []Call

	// ConcatMedia is registered for every concat output.
	ConcatMedia Media
	// FFmpegErr makes every ffmpeg call fail with this error.
	FFmpegErr error
	// ProbeErr makes every ffprobe call fail with this error.
	ProbeErr error
}

// NewRunner returns a runner that reports DefaultMedia for unknown files.
func NewRunner() *Runner {
	return &Runner{media: make(map[string]Media), ConcatMedia: DefaultMedia()}
}

// SetMedia registers probe data for path.
func (r *Runner) SetMedia(path string, m Media) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.media[path] = m
}

// Calls returns every invocation so far.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallsTo returns the invocations of binaries whose base name contains tool.
func (r *Runner) CallsTo(tool string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if strings.Contains(filepath.Base(c.Name), tool) {
			out = append(out, c)
		}
	}
	return out
}

// Run implements audio.CommandRunner.
func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	r.mu.Lock()
	r.calls = append(r.calls, Call{Name: name, Args: append([]string(nil), args...)})
	r.mu.Unlock()

	if strings.Contains(filepath.Base(name), "ffprobe") {
		return r.probe(args)
	}
	return r.ffmpeg(args)
}

func (r *Runner) probe(args []string) ([]byte, []byte, error) {
	if r.ProbeErr != nil {
		return nil, []byte("probe failed"), r.ProbeErr
	}
	path := args[len(args)-1]
	info, err := os.Stat(path)
	if err != nil {
		return nil, []byte(path + ": No such file or directory"), errors.New("exit status 1")
	}

	r.mu.Lock()
	m, ok := r.media[path]
	r.mu.Unlock()
	if !ok {
		m = DefaultMedia()
	}

	type stream struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		BitRate    string `json:"bit_rate"`
	}
	out := map[string]any{
		"format": map[string]any{
			"format_name": strings.TrimPrefix(filepath.Ext(path), "."),
			"duration":    strconv.FormatFloat(m.DurationSeconds, 'f', 6, 64),
			"size":        strconv.FormatInt(info.Size(), 10),
			"bit_rate":    strconv.Itoa(m.BitrateKbps * 1000),
			"tags":        m.Tags,
		},
		"streams": []stream{},
	}
	if !m.NoAudio {
		out["streams"] = []stream{{
			CodecType:  "audio",
			CodecName:  m.Codec,
			SampleRate: strconv.Itoa(m.SampleRate),
			Channels:   m.Channels,
			BitRate:    strconv.Itoa(m.BitrateKbps * 1000),
		}}
	}
	data, err := json.Marshal(out)
	return data, nil, err
}

func (r *Runner) ffmpeg(args []string) ([]byte, []byte, error) {
	if r.FFmpegErr != nil {
		return nil, []byte("Conversion failed!"), r.FFmpegErr
	}
	output := args[len(args)-1]
	input := flagValue(args, "-i")
	tags := metadataFlags(args)

	if flagValue(args, "-f") == "concat" {
		inputs, err := readConcatList(input)
		if err != nil {
			return nil, []byte(err.Error()), errors.New("exit status 1")
		}
		var joined bytes.Buffer
		for _, in := range inputs {
			data, err := os.ReadFile(in)
			if err != nil {
				return nil, []byte(err.Error()), errors.New("exit status 1")
			}
			joined.Write(data)
		}
		if err := os.WriteFile(output, joined.Bytes(), 0o600); err != nil {
			return nil, []byte(err.Error()), errors.New("exit status 1")
		}
		m := r.ConcatMedia
		m.DurationSeconds *= float64(len(inputs))
		m.Tags = tags
		r.SetMedia(output, m)
		return nil, nil, nil
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return nil, []byte(input + ": No such file or directory"), errors.New("exit status 1")
	}
	if err := os.WriteFile(output, data, 0o600); err != nil {
		return nil, []byte(err.Error()), errors.New("exit status 1")
	}

	r.mu.Lock()
	m, ok := r.media[input]
	r.mu.Unlock()
	if !ok {
		m = DefaultMedia()
	}
	m.Tags = maps.Clone(m.Tags)
	if b := flagValue(args, "-b:a"); b != "" {
		kbps, _ := strconv.Atoi(strings.TrimSuffix(b, "k"))
		m.BitrateKbps = kbps
	}
	if ar := flagValue(args, "-ar"); ar != "" {
		m.SampleRate, _ = strconv.Atoi(ar)
	}
	if flagValue(args, "-map_metadata") == "-1" {
		m.Tags = nil
	}
	for k, v := range tags {
		if m.Tags == nil {
			m.Tags = map[string]string{}
		}
		m.Tags[k] = v
	}
	r.SetMedia(output, m)
	return nil, nil, nil
}

func flagValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func metadataFlags(args []string) map[string]string {
	var tags map[string]string
	for i := 0; i < len(args)-1; i++ {
		if args[i] != "-metadata" {
			continue
		}
		k, v, ok := strings.Cut(args[i+1], "=")
		if !ok {
			continue
		}
		if tags == nil {
			tags = map[string]string{}
		}
		tags[k] = v
	}
	return tags
}

func readConcatList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rest, ok := strings.CutPrefix(line, "file ")
		if !ok {
			return nil, fmt.Errorf("unexpected concat line %q", line)
		}
		rest = strings.TrimSuffix(strings.TrimPrefix(rest, "'"), "'")
		out = append(out, strings.ReplaceAll(rest, `'\''`, "'"))
	}
	return out, scanner.Err()
}
