// Package domain contains the core domain types and validation logic.
// This is part of the Functional Core - all functions are pure with no I/O.
package domain

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// Name validation errors
	ErrNameRequired     = errors.New("name is required")
	ErrNameTooShort     = errors.New("name must be at least 3 characters")
	ErrNameTooLong      = errors.New("name must be at most 100 characters")
	ErrNameInvalidChars = errors.New("name can only contain alphanumeric characters, spaces, and hyphens")

	// Version validation errors
	ErrVersionRequired      = errors.New("version is required")
	ErrVersionInvalidFormat = errors.New("version must be in semver format (X.Y.Z)")

	// Variable validation errors
	ErrVariableDuplicate       = errors.New("duplicate variable name")
	ErrVariableInvalidType     = errors.New("invalid variable type")
	ErrVariableOptionsRequired = errors.New("options required for select type")

	// Compose validation errors
	ErrComposeRequired = errors.New("compose document is required")

	// Config file validation errors
	ErrConfigFileNameRequired = errors.New("config file name is required")
	ErrConfigFilePathRequired = errors.New("config file path is required")
	ErrConfigFilePathRelative = errors.New("config file path must be absolute")
)

// =============================================================================
// Variable Types
// =============================================================================

type VariableType string

const (
	VarTypeString   VariableType = "string"
	VarTypeNumber   VariableType = "number"
	VarTypeBoolean  VariableType = "boolean"
	VarTypePassword VariableType = "password"
	VarTypeSelect   VariableType = "select"
)

// IsValid checks if the variable type is valid.
func (vt VariableType) IsValid() bool {
	switch vt {
	case VarTypeString, VarTypeNumber, VarTypeBoolean, VarTypePassword, VarTypeSelect:
		return true
	default:
		return false
	}
}

// =============================================================================
// Variable
// =============================================================================

// Variable represents a configurable variable in a variant.
type Variable struct {
	Name        string       `json:"name"`
	Label       string       `json:"label"`
	Description string       `json:"description,omitempty"`
	Type        VariableType `json:"type"`
	Default     string       `json:"default,omitempty"`
	Required    bool         `json:"required"`
	Options     []string     `json:"options,omitempty"`
}

// =============================================================================
// ConfigFile
// =============================================================================

// ConfigFile represents a configuration file to be mounted in containers.
// These are stored with the variant and written to disk when a stack is
// brought up, then bind-mounted at Path. A Prometheus variant, for example,
// carries its scrape config this way rather than expecting the file to exist
// on the host.
type ConfigFile struct {
	// Name is a human-readable identifier (e.g., "prometheus.yml")
	Name string `json:"name"`

	// Path is the absolute path where the file will be mounted in the container
	// (e.g., "/etc/prometheus/prometheus.yml")
	Path string `json:"path"`

	// Content is the actual file content
	Content string `json:"content"`

	// Mode is the file permission mode (e.g., "0644"). Defaults to "0644" if empty.
	Mode string `json:"mode,omitempty"`

	// Service restricts the mount to one service. Empty means every service
	// in the variant gets the mount.
	Service string `json:"service,omitempty"`
}

// =============================================================================
// Variant
// =============================================================================

// Variant represents a deployable arrangement of services.
// Two variants may describe the same application with different service
// sets; each is a complete, independently deployable document.
type Variant struct {
	ID          int          `json:"-"`
	ReferenceID string       `json:"id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Description string       `json:"description,omitempty"`
	Version     string       `json:"version"`
	ComposeYAML string       `json:"compose_yaml"`
	Variables   []Variable   `json:"variables,omitempty"`
	ConfigFiles []ConfigFile `json:"config_files,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewVariant creates a new variant with the given name, version, and compose
// document. Returns an error if validation fails.
func NewVariant(name, version, composeYAML string) (*Variant, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateVersion(version); err != nil {
		return nil, err
	}
	if err := ValidateComposeYAML(composeYAML); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Variant{
		ReferenceID: "var_" + uuid.New().String()[:8],
		Name:        name,
		Slug:        Slugify(name),
		Version:     version,
		ComposeYAML: composeYAML,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ConfigFilesFor returns the config files that apply to the named service.
func (v *Variant) ConfigFilesFor(service string) []ConfigFile {
	var files []ConfigFile
	for _, cf := range v.ConfigFiles {
		if cf.Service == "" || cf.Service == service {
			files = append(files, cf)
		}
	}
	return files
}

// =============================================================================
// Validation Functions (Pure)
// =============================================================================

var (
	nameRegex    = regexp.MustCompile(`^[a-zA-Z0-9\s\-]+$`)
	versionRegex = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
)

// ValidateName validates a variant name.
func ValidateName(name string) error {
	if name == "" {
		return ErrNameRequired
	}
	if len(name) < 3 {
		return ErrNameTooShort
	}
	if len(name) > 100 {
		return ErrNameTooLong
	}
	if !nameRegex.MatchString(name) {
		return ErrNameInvalidChars
	}
	return nil
}

// ValidateVersion validates a version string (must be semver X.Y.Z).
func ValidateVersion(version string) error {
	if version == "" {
		return ErrVersionRequired
	}
	if !versionRegex.MatchString(version) {
		return ErrVersionInvalidFormat
	}
	return nil
}

// CompareVersions compares two version strings.
// Returns -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2.
func CompareVersions(v1, v2 string) int {
	parts1 := strings.Split(v1, ".")
	parts2 := strings.Split(v2, ".")

	for i := 0; i < 3; i++ {
		n1, _ := strconv.Atoi(parts1[i])
		n2, _ := strconv.Atoi(parts2[i])
		if n1 < n2 {
			return -1
		}
		if n1 > n2 {
			return 1
		}
	}
	return 0
}

// ValidateComposeYAML validates a compose document string.
// Only checks presence; structural validation lives in the compose package.
func ValidateComposeYAML(composeYAML string) error {
	if strings.TrimSpace(composeYAML) == "" {
		return ErrComposeRequired
	}
	return nil
}

// ValidateVariables validates a slice of variables.
// Returns all validation errors found.
func ValidateVariables(vars []Variable) []error {
	var errs []error
	seen := make(map[string]bool)

	for _, v := range vars {
		// Check for duplicates
		if seen[v.Name] {
			errs = append(errs, ErrVariableDuplicate)
			continue
		}
		seen[v.Name] = true

		// Check type
		if !v.Type.IsValid() {
			errs = append(errs, ErrVariableInvalidType)
			continue
		}

		// Check options for select type
		if v.Type == VarTypeSelect && len(v.Options) == 0 {
			errs = append(errs, ErrVariableOptionsRequired)
		}
	}

	return errs
}

// ValidateConfigFiles validates a slice of config files.
// Returns all validation errors found.
func ValidateConfigFiles(files []ConfigFile) []error {
	var errs []error

	for _, cf := range files {
		if cf.Name == "" {
			errs = append(errs, ErrConfigFileNameRequired)
		}
		if cf.Path == "" {
			errs = append(errs, ErrConfigFilePathRequired)
		} else if !strings.HasPrefix(cf.Path, "/") {
			errs = append(errs, ErrConfigFilePathRelative)
		}
	}

	return errs
}

// ValidateVariant validates a variant and returns all validation errors.
func ValidateVariant(v Variant) []error {
	var errs []error

	if err := ValidateName(v.Name); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateVersion(v.Version); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateComposeYAML(v.ComposeYAML); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, ValidateVariables(v.Variables)...)
	errs = append(errs, ValidateConfigFiles(v.ConfigFiles)...)

	return errs
}
