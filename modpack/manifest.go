package modpack

import (
	"errors"
	"fmt"
	"strings"

	"mod-deployer/pathutil"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// SourceManifestName is the manifest entry of a mod archive, conventionally
	// appended last.
	SourceManifestName = "modinfo.yaml"
	// BackupManifestName is the manifest entry of a backup archive or directory.
	BackupManifestName = "backup.yaml"
	// BackupRoot is the folder holding the captured tree inside a backup.
	BackupRoot = "backup"
	// BackupExt is the extension of archive backups.
	BackupExt = ".bck"
	// ArchiveExt is the extension of mod archives in the library.
	ArchiveExt = ".zip"
)

var validate = validator.New()

// SourceManifest describes how a mod archive installs.
type SourceManifest struct {
	InstallRoot  string   `yaml:"install_root" validate:"required"`
	Dependencies []string `yaml:"dependencies,omitempty" validate:"dive,required"`
	Category     string   `yaml:"category,omitempty"`
	Description  string   `yaml:"description,omitempty"`
	Picture      string   `yaml:"picture,omitempty"`
}

// ManifestEntry is one recorded path of a backup manifest.
type ManifestEntry struct {
	Path string `yaml:"path" validate:"required"`
	Dir  bool   `yaml:"dir,omitempty"`
}

// BackupManifest is the durable transaction log written next to a backup
// payload. It is all that is needed to reverse an install.
type BackupManifest struct {
	Identity     string          `yaml:"identity" validate:"required"`
	Hash         string          `yaml:"hash" validate:"required,hexadecimal"`
	Root         string          `yaml:"root" validate:"required"`
	Category     string          `yaml:"category,omitempty"`
	Dependencies []string        `yaml:"dependencies,omitempty"`
	Copy         []ManifestEntry `yaml:"copy,omitempty" validate:"dive"`
	Delete       []ManifestEntry `yaml:"delete,omitempty" validate:"dive"`
	Overlaps     []string        `yaml:"overlaps,omitempty" validate:"dive,hexadecimal"`
}

// DecodeSourceManifest parses and validates a source manifest.
func DecodeSourceManifest(data []byte) (*SourceManifest, error) {
	var sm SourceManifest
	if err := yaml.Unmarshal(data, &sm); err != nil {
		return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
	}
	if err := validate.Struct(&sm); err != nil {
		return nil, describeValidation(err)
	}
	if !pathutil.IsSafe(sm.InstallRoot) {
		return nil, fmt.Errorf("install_root %q escapes the archive", sm.InstallRoot)
	}
	sm.InstallRoot = pathutil.Clean(sm.InstallRoot)
	if sm.InstallRoot == "" {
		return nil, errors.New("install_root must name a folder inside the archive")
	}
	sm.Dependencies = uniqueStrings(sm.Dependencies)
	sm.Description = normalizeNewlines(sm.Description)
	return &sm, nil
}

// Encode renders the manifest as YAML.
func (sm *SourceManifest) Encode() ([]byte, error) {
	return yaml.Marshal(sm)
}

// DecodeBackupManifest parses and validates a backup manifest.
func DecodeBackupManifest(data []byte) (*BackupManifest, error) {
	var bm BackupManifest
	if err := yaml.Unmarshal(data, &bm); err != nil {
		return nil, fmt.Errorf("failed to parse backup manifest YAML: %w", err)
	}
	if err := validate.Struct(&bm); err != nil {
		return nil, describeValidation(err)
	}
	for _, e := range append(append([]ManifestEntry{}, bm.Copy...), bm.Delete...) {
		if !pathutil.IsSafe(e.Path) {
			return nil, fmt.Errorf("entry %q escapes the target", e.Path)
		}
	}
	return &bm, nil
}

// Encode renders the manifest as YAML.
func (bm *BackupManifest) Encode() ([]byte, error) {
	return yaml.Marshal(bm)
}

func describeValidation(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	var msgs []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s: required field is missing", fe.Namespace()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: failed %q check", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("manifest validation failed: %s", strings.Join(msgs, "; "))
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
