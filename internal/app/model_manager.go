package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/emmett/voxstream/internal/models"
)

// ModelManager is the interactive front end of the model store
type ModelManager struct {
	store *models.Store
	out   io.Writer
	in    *bufio.Reader
}

// NewModelManager creates a manager printing to out and prompting on in
func NewModelManager(store *models.Store, out io.Writer, in io.Reader) *ModelManager {
	if out == nil {
		out = os.Stdout
	}
	if in == nil {
		in = os.Stdin
	}
	return &ModelManager{store: store, out: out, in: bufio.NewReader(in)}
}

// Store returns the underlying model store
func (m *ModelManager) Store() *models.Store {
	return m.store
}

// ListModels prints the catalog with download status
func (m *ModelManager) ListModels() error {
	fmt.Fprintln(m.out, "Available models for download:")
	fmt.Fprintln(m.out)

	for i, model := range m.store.Catalog {
		fmt.Fprintf(m.out, "%d. %s\n", i+1, model.Name)
		fmt.Fprintf(m.out, "   Language: %s\n", model.Language)
		fmt.Fprintf(m.out, "   Size:     %s\n", model.Size)
		fmt.Fprintf(m.out, "   Info:     %s\n", model.Description)

		if downloaded, _ := m.store.IsDownloaded(model.Name); downloaded {
			fmt.Fprintln(m.out, "   Status:   ✓ Downloaded")
		} else {
			fmt.Fprintln(m.out, "   Status:   Not downloaded")
		}
		fmt.Fprintln(m.out)
	}

	fmt.Fprintln(m.out, "To download a model, use:")
	fmt.Fprintln(m.out, "  voxstream --download-model <model-name>")
	return nil
}

// ListDownloaded prints the downloaded models
func (m *ModelManager) ListDownloaded() error {
	downloaded, err := m.store.Downloaded()
	if err != nil {
		return fmt.Errorf("error listing models: %w", err)
	}

	if len(downloaded) == 0 {
		fmt.Fprintln(m.out, "No models downloaded yet.")
		fmt.Fprintln(m.out, "Use 'voxstream --download-model <name>' to download a model")
		return nil
	}

	def, _ := m.store.DefaultModel()
	fmt.Fprintf(m.out, "Downloaded models (%d):\n\n", len(downloaded))
	for i, name := range downloaded {
		marker := ""
		if name == def {
			marker = " [DEFAULT]"
		}
		fmt.Fprintf(m.out, "%d. %s%s\n", i+1, name, marker)
		if path, err := m.store.Path(name); err == nil {
			fmt.Fprintf(m.out, "   Path: %s\n", path)
		}
	}
	return nil
}

// Download fetches a model unless it is already present
func (m *ModelManager) Download(ctx context.Context, name string) error {
	model := m.store.Find(name)
	if model == nil {
		return fmt.Errorf("unknown model: %s (use --list-models)", name)
	}

	downloaded, err := m.store.IsDownloaded(name)
	if err != nil {
		return fmt.Errorf("error checking model: %w", err)
	}
	if downloaded {
		path, _ := m.store.Path(name)
		fmt.Fprintf(m.out, "Model '%s' is already downloaded.\nLocation: %s\n", name, path)
		return nil
	}

	fmt.Fprintf(m.out, "Downloading model: %s (%s)\n", model.Name, model.Size)
	if err := m.store.Download(ctx, name, m.progress); err != nil {
		return fmt.Errorf("error downloading model: %w", err)
	}
	fmt.Fprintf(m.out, "\n✓ Model '%s' downloaded successfully!\n", name)
	return nil
}

func (m *ModelManager) progress(downloaded, total int64) {
	if total <= 0 {
		fmt.Fprintf(m.out, "\rProgress: %d bytes", downloaded)
		return
	}
	percent := float64(downloaded) / float64(total) * 100
	fmt.Fprintf(m.out, "\rProgress: %.1f%% (%d/%d bytes)", percent, downloaded, total)
}

// SetDefault records the default model
func (m *ModelManager) SetDefault(name string) error {
	if err := m.store.SetDefault(name); err != nil {
		return fmt.Errorf("error setting default model: %w", err)
	}
	fmt.Fprintf(m.out, "✓ Default model set to: %s\n", name)

	if downloaded, _ := m.store.IsDownloaded(name); !downloaded {
		fmt.Fprintf(m.out, "Note: this model is not yet downloaded. Run 'voxstream --download-model %s'.\n", name)
	}
	return nil
}

// SelectInteractive prompts for a catalog model and returns its name
func (m *ModelManager) SelectInteractive(ctx context.Context) (string, error) {
	downloaded, err := m.store.Downloaded()
	if err != nil {
		return "", err
	}

	fmt.Fprintln(m.out, "Select a model to use:")
	fmt.Fprintln(m.out)
	for i, model := range m.store.Catalog {
		status := "Not downloaded"
		if slices.Contains(downloaded, model.Name) {
			status = "✓ Downloaded"
		}
		fmt.Fprintf(m.out, "%d. %s (%s)\n   %s\n   Status: %s\n\n", i+1, model.Name, model.Size, model.Description, status)
	}

	fmt.Fprintf(m.out, "Enter number (1-%d): ", len(m.store.Catalog))
	line, err := m.in.ReadString('\n')
	if err != nil {
		return "", err
	}

	var choice int
	if _, err := fmt.Sscanf(strings.TrimSpace(line), "%d", &choice); err != nil || choice < 1 || choice > len(m.store.Catalog) {
		return "", fmt.Errorf("invalid selection")
	}

	selected := m.store.Catalog[choice-1].Name
	if _, err := m.EnsureModel(ctx, selected, false); err != nil {
		return "", err
	}
	return selected, nil
}

// EnsureModel resolves name (empty for the default) to a model path,
// downloading it automatically or after a prompt when it is missing.
func (m *ModelManager) EnsureModel(ctx context.Context, name string, autoDownload bool) (string, error) {
	if path, err := m.store.Resolve(name); err == nil {
		return path, nil
	}

	if name == "" {
		def, err := m.store.DefaultModel()
		if err != nil {
			return "", err
		}
		name = def
	}
	if m.store.Find(name) == nil {
		return "", fmt.Errorf("model not found: %s", name)
	}

	if !autoDownload {
		fmt.Fprintf(m.out, "Model '%s' not found. Download it now? (y/n): ", name)
		response, err := m.in.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			return "", fmt.Errorf("model download declined")
		}
	}

	if err := m.Download(ctx, name); err != nil {
		return "", err
	}
	return m.store.Path(name)
}
