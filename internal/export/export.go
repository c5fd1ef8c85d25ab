// Package export saves assembled campaign plans as JSON files.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mashkdul/Perplexity-mockup/internal/domain"
)

// Encode writes plan to w as JSON indented with two spaces.
func Encode(w io.Writer, plan domain.CampaignPlan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(plan); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return nil
}

// FileName returns the export file name of plan, safe to join to a directory.
func FileName(plan domain.CampaignPlan) string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(plan.ExportName())
	if strings.Trim(name, ".") == "json" {
		return "campaign.json"
	}
	return name
}

// WritePlan writes plan into dir and returns the file path. The file is
// replaced atomically, so readers never see a partial plan.
func WritePlan(dir string, plan domain.CampaignPlan) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".campaign-*.json")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if err := Encode(tmp, plan); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod export: %w", err)
	}

	path := filepath.Join(dir, FileName(plan))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename export: %w", err)
	}
	return path, nil
}
