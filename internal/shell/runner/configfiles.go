package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/artpar/stackd/internal/core/domain"
)

// =============================================================================
// Config File Management
// =============================================================================

// stackConfigDir returns the directory holding a stack's rendered config
// files. Docker bind mounts require absolute source paths.
func (r *Runner) stackConfigDir(stackID string) string {
	dir := r.configDir
	if !filepath.IsAbs(dir) {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
	}
	return filepath.Join(dir, stackID)
}

// writeConfigFiles writes config files to the host filesystem and returns a
// map of container paths to host paths for bind mounting.
func (r *Runner) writeConfigFiles(stackDir string, configFiles []domain.ConfigFile) (map[string]string, error) {
	mounts := make(map[string]string)

	if len(configFiles) == 0 {
		return mounts, nil
	}

	if err := os.MkdirAll(stackDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	for _, cf := range configFiles {
		// Sanitize the config file name for the host filesystem
		hostFileName := sanitizeFileName(cf.Name)
		if hostFileName == "" {
			hostFileName = sanitizeFileName(filepath.Base(cf.Path))
		}
		hostPath := filepath.Join(stackDir, hostFileName)

		// Parse file mode (default to 0644)
		fileMode := os.FileMode(0644)
		if cf.Mode != "" {
			var mode uint32
			if _, err := fmt.Sscanf(cf.Mode, "%o", &mode); err == nil {
				fileMode = os.FileMode(mode)
			}
		}

		if err := os.WriteFile(hostPath, []byte(cf.Content), fileMode); err != nil {
			return nil, fmt.Errorf("failed to write config file %s: %w", cf.Name, err)
		}

		r.logger.Debug("wrote config file",
			"name", cf.Name,
			"host_path", hostPath,
			"container_path", cf.Path,
			"mode", cf.Mode,
		)

		// Map container path to host path
		mounts[cf.Path] = hostPath
	}

	return mounts, nil
}

// sanitizeFileName makes a filename safe for the filesystem.
func sanitizeFileName(name string) string {
	// Replace unsafe characters with underscores
	unsafe := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " "}
	result := name
	for _, char := range unsafe {
		result = strings.ReplaceAll(result, char, "_")
	}
	// Remove leading/trailing underscores
	result = strings.Trim(result, "_")
	return result
}

// CleanupConfigFiles removes the rendered config files for a stack.
func (r *Runner) CleanupConfigFiles(stackID string) error {
	stackDir := r.stackConfigDir(stackID)
	if err := os.RemoveAll(stackDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to cleanup config files: %w", err)
	}
	r.logger.Debug("cleaned up config files", "stack_id", stackID)
	return nil
}
