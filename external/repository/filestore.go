package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/foxseedlab/livescribe/internal/repository"
)

const (
	dirPerm      fs.FileMode = 0o777
	artifactPerm fs.FileMode = 0o666
)

type FileStoreFactory struct {
	dataDir  string
	mkdirAll func(path string, perm os.FileMode) error
}

func NewFileStoreFactory(dataDir string) repository.StoreFactory {
	return &FileStoreFactory{
		dataDir:  dataDir,
		mkdirAll: os.MkdirAll,
	}
}

// Open creates session_<id> under the data directory. When the session
// directory cannot be created for lack of permission, artifacts go to the data
// directory itself and FellBack reports true.
func (f *FileStoreFactory) Open(sessionID string) (repository.Store, error) {
	if sessionID == "" || sessionID == "." || sessionID == ".." || strings.ContainsAny(sessionID, `/\`) {
		return nil, fmt.Errorf("invalid session id %q", sessionID)
	}
	if err := f.mkdirAll(f.dataDir, dirPerm); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dir := filepath.Join(f.dataDir, "session_"+sessionID)
	fellBack := false
	if err := f.mkdirAll(dir, dirPerm); err != nil {
		if !errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("create session directory: %w", err)
		}
		slog.Warn("cannot create session directory; falling back to data directory", "error", err, "dir", dir, "data_dir", f.dataDir)
		dir = f.dataDir
		fellBack = true
	} else {
		makeWritable(dir)
	}

	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &FileStore{
		dir:       dir,
		sessionID: sessionID,
		fellBack:  fellBack,
	}, nil
}

// FileStore writes the artifacts of one session. Each file has a single
// writer; the audio file is additionally guarded so Close can race a late
// producer safely.
type FileStore struct {
	dir       string
	sessionID string
	fellBack  bool

	audioMu     sync.Mutex
	audio       *os.File
	audioClosed bool
}

func (s *FileStore) Location() string { return s.dir }

func (s *FileStore) FellBack() bool { return s.fellBack }

func (s *FileStore) OngoingTranscriptPath() string {
	return filepath.Join(s.dir, fmt.Sprintf("transcript_%s_ongoing.txt", s.sessionID))
}

func (s *FileStore) SentimentPath() string {
	return filepath.Join(s.dir, fmt.Sprintf("sentiments_%s.txt", s.sessionID))
}

func (s *FileStore) FinalTranscriptPath() string {
	return filepath.Join(s.dir, fmt.Sprintf("transcript_%s_final.json", s.sessionID))
}

func (s *FileStore) AudioPath() string {
	return filepath.Join(s.dir, fmt.Sprintf("audio_%s.pcm", s.sessionID))
}

func (s *FileStore) AppendUtterance(_ context.Context, u repository.Utterance) error {
	return appendFile(s.OngoingTranscriptPath(), repository.UtteranceLine(u)+"\n")
}

func (s *FileStore) AppendSentiment(_ context.Context, r repository.SentimentRecord) error {
	return appendFile(s.SentimentPath(), strings.Join(repository.SentimentLines(r), "\n")+"\n\n")
}

// WriteFinalTranscript stores the document as received, only re-indented.
func (s *FileStore) WriteFinalTranscript(_ context.Context, doc []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		buf.Reset()
		buf.Write(doc)
	}
	buf.WriteByte('\n')
	path := s.FinalTranscriptPath()
	if err := os.WriteFile(path, buf.Bytes(), artifactPerm); err != nil {
		return fmt.Errorf("write final transcript: %w", err)
	}
	makeWritable(path)
	return nil
}

func (s *FileStore) WriteAudio(chunk []byte) error {
	s.audioMu.Lock()
	defer s.audioMu.Unlock()
	if s.audioClosed {
		return fmt.Errorf("write audio: %w", os.ErrClosed)
	}
	if s.audio == nil {
		f, err := os.OpenFile(s.AudioPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, artifactPerm)
		if err != nil {
			return fmt.Errorf("open audio capture: %w", err)
		}
		makeWritable(f.Name())
		s.audio = f
	}
	if _, err := s.audio.Write(chunk); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	s.audioMu.Lock()
	defer s.audioMu.Unlock()
	if s.audioClosed {
		return nil
	}
	s.audioClosed = true
	if s.audio == nil {
		return nil
	}
	err := s.audio.Close()
	makeWritable(s.audio.Name())
	return err
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, artifactPerm)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	_, werr := f.WriteString(content)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("append %s: %w", filepath.Base(path), werr)
	}
	if cerr != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), cerr)
	}
	makeWritable(path)
	return nil
}

// makeWritable adds read/write for user, group and other. Failure is not an error.
func makeWritable(path string) {
	info, err := os.Lstat(path)
	if err != nil {
		slog.Debug("chmod skipped", "path", path, "error", err)
		return
	}
	if err := os.Chmod(path, info.Mode().Perm()|artifactPerm); err != nil {
		slog.Debug("chmod failed", "path", path, "error", err)
	}
}
