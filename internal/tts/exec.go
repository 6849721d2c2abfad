package tts

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
)

// ExecProvider runs a local command per chunk. The command receives one JSON
// request on stdin and writes JSON lines carrying base64 MP3 data on stdout.
type ExecProvider struct {
	cmd []string
}

type execRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	Format string `json:"format"`
}

type execResponse struct {
	AudioBase64 string `json:"audio_base64"`
	Final       bool   `json:"final"`
}

// NewExecProvider parses command with shell quoting rules.
func NewExecProvider(command string) (*ExecProvider, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}
	return &ExecProvider{cmd: args}, nil
}

// Name returns the provider label.
func (e *ExecProvider) Name() string { return "exec:" + e.cmd[0] }

// Synthesize runs the command once and joins every audio line it prints.
func (e *ExecProvider) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	data, err := json.Marshal(execRequest{Text: text, Voice: voice, Format: "mp3"})
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, e.cmd[0], e.cmd[1:]...) //nolint:gosec // command comes from configuration
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, apperrors.Synthesis(apperrors.ReasonTransient, e.Name()+" exited with an error").
			Wrap(err).WithInternal("stderr: %s", strings.TrimSpace(stderr.String()))
	}

	var audio bytes.Buffer
	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var resp execResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			return nil, apperrors.Synthesis(apperrors.ReasonMalformed, e.Name()+" printed invalid JSON").Wrap(err)
		}
		chunk, err := base64.StdEncoding.DecodeString(resp.AudioBase64)
		if err != nil {
			return nil, apperrors.Synthesis(apperrors.ReasonMalformed, e.Name()+" printed invalid base64").Wrap(err)
		}
		audio.Write(chunk)
		if resp.Final {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Synthesis(apperrors.ReasonMalformed, e.Name()+" output unreadable").Wrap(err)
	}
	return audio.Bytes(), nil
}
