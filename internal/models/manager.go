package models

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Model represents a Vosk model
type Model struct {
	Name        string
	Language    string
	Size        string
	URL         string
	Description string
}

// Available models from Vosk
var AvailableModels = []Model{
	{
		Name:        "vosk-model-small-en-us-0.15",
		Language:    "en-US",
		Size:        "40M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip",
		Description: "Lightweight English model, fast but less accurate",
	},
	{
		Name:        "vosk-model-en-us-0.22",
		Language:    "en-US",
		Size:        "1.8G",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-en-us-0.22.zip",
		Description: "Large English model, slower but more accurate",
	},
	{
		Name:        "vosk-model-en-us-0.22-lgraph",
		Language:    "en-US",
		Size:        "128M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-en-us-0.22-lgraph.zip",
		Description: "Medium English model, balanced speed and accuracy",
	},
}

// DefaultModelName is the default model to use
const DefaultModelName = "vosk-model-small-en-us-0.15"

const defaultModelFile = ".default_model"

// Store manages the models kept in one directory
type Store struct {
	Dir     string
	Catalog []Model
	Client  *http.Client
	Logger  zerolog.Logger
}

// NewStore creates a store over dir using the built-in catalog
func NewStore(dir string, logger zerolog.Logger) *Store {
	return &Store{
		Dir:     dir,
		Catalog: AvailableModels,
		Client:  http.DefaultClient,
		Logger:  logger.With().Str("component", "models").Logger(),
	}
}

// DefaultDir returns ./models in the current working directory
func DefaultDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(cwd, "models"), nil
}

// Find finds a model by name in the catalog
func (s *Store) Find(name string) *Model {
	for i := range s.Catalog {
		if s.Catalog[i].Name == name {
			return &s.Catalog[i]
		}
	}
	return nil
}

// DefaultModel returns the configured default model name.
// If no custom default is set, returns DefaultModelName.
func (s *Store) DefaultModel() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, defaultModelFile))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultModelName, nil
		}
		return DefaultModelName, err
	}

	name := strings.TrimSpace(string(data))
	if name == "" {
		return DefaultModelName, nil
	}
	return name, nil
}

// SetDefault records the default model
func (s *Store) SetDefault(name string) error {
	if s.Find(name) == nil {
		return fmt.Errorf("unknown model: %s", name)
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, defaultModelFile), []byte(name), 0644); err != nil {
		return fmt.Errorf("failed to save default model: %w", err)
	}
	return nil
}

// IsDownloaded checks if a model is already downloaded
func (s *Store) IsDownloaded(name string) (bool, error) {
	info, err := os.Stat(filepath.Join(s.Dir, name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// Path returns the directory of a downloaded model
func (s *Store) Path(name string) (string, error) {
	downloaded, err := s.IsDownloaded(name)
	if err != nil {
		return "", err
	}
	if !downloaded {
		return "", fmt.Errorf("model not found: %s", name)
	}
	return filepath.Join(s.Dir, name), nil
}

// Resolve turns a model name or directory into a model path. An empty
// name means the default model.
func (s *Store) Resolve(nameOrPath string) (string, error) {
	if nameOrPath == "" {
		def, err := s.DefaultModel()
		if err != nil {
			return "", err
		}
		nameOrPath = def
	}
	if info, err := os.Stat(nameOrPath); err == nil && info.IsDir() {
		return nameOrPath, nil
	}
	return s.Path(nameOrPath)
}

// Downloaded lists all downloaded models
func (s *Store) Downloaded() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read models directory: %w", err)
	}

	models := []string{}
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "vosk-model") {
			models = append(models, entry.Name())
		}
	}
	return models, nil
}

// Download fetches and unpacks a catalog model
func (s *Store) Download(ctx context.Context, name string, progress func(downloaded, total int64)) error {
	model := s.Find(name)
	if model == nil {
		return fmt.Errorf("unknown model: %s", name)
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	zipPath := filepath.Join(s.Dir, name+".zip")
	defer os.Remove(zipPath)

	s.Logger.Info().Str("model", name).Str("size", model.Size).Msg("downloading model")
	if err := s.fetch(ctx, model.URL, zipPath, progress); err != nil {
		return err
	}

	s.Logger.Info().Str("model", name).Msg("extracting model")
	if err := extractZip(zipPath, s.Dir); err != nil {
		return fmt.Errorf("failed to extract model: %w", err)
	}
	return nil
}

func (s *Store) fetch(ctx context.Context, url, dest string, progress func(downloaded, total int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	w := &progressWriter{w: out, total: resp.ContentLength, progress: progress}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("download error: %w", err)
	}
	return nil
}

type progressWriter struct {
	w          io.Writer
	downloaded int64
	total      int64
	progress   func(downloaded, total int64)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.downloaded += int64(n)
	if p.progress != nil {
		p.progress(p.downloaded, p.total)
	}
	return n, err
}

// extractZip extracts a zip file to the specified directory
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		fpath := filepath.Join(destDir, f.Name)

		// ZipSlip
		if !strings.HasPrefix(fpath, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path: %s", fpath)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, os.ModePerm); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(fpath), os.ModePerm); err != nil {
			return err
		}
		if err := extractFile(f, fpath); err != nil {
			return err
		}
	}

	return nil
}

func extractFile(f *zip.File, dest string) error {
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(out, rc)
	return err
}
