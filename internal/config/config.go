package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	jperrors "github.com/nomad-traveller/jetsonprep/pkg/errors"
)

// Settings is the immutable configuration for one run. It is assembled
// once at startup from defaults, an optional overrides file, and flags,
// then threaded explicitly into every operation; operations never consult
// ambient global state.
type Settings struct {
	// Swap management.
	SwapSizeGB  int    `yaml:"swap_size_gb" validate:"min=1,max=64"`
	SwapFile    string `yaml:"swap_file" validate:"required"`
	FstabPath   string `yaml:"fstab_path" validate:"required"`
	DisableSwap bool   `yaml:"disable_swap"`

	// Package management.
	Packages      []string `yaml:"packages" validate:"required,min=1,dive,min=1"`
	DisableUpdate bool     `yaml:"disable_update"`

	// Optional VS Code install.
	InstallVSCode bool   `yaml:"install_vscode"`
	VSCodeVersion string `yaml:"vscode_version" validate:"required"`
	Arch          string `yaml:"arch" validate:"required,oneof=arm64 amd64 armhf"`

	// CUDA toolchain.
	CUDAVersionedDir string `yaml:"cuda_versioned_dir" validate:"required"`
	CUDALinkPath     string `yaml:"cuda_link_path" validate:"required"`
	CUDAPackage      string `yaml:"cuda_package" validate:"required"`
	NvccRelease      string `yaml:"nvcc_release" validate:"required"`

	// Shell profile.
	ProfilePath     string   `yaml:"profile_path" validate:"required"`
	ProfileEncoding string   `yaml:"profile_encoding" validate:"omitempty,oneof=utf-8 latin-1 windows-1252 utf-16le utf-16be"`
	EnvLines        []string `yaml:"env_lines" validate:"required,min=1,dive,min=1"`

	// Run mode.
	DryRun  bool `yaml:"-"`
	Verbose bool `yaml:"-"`
}

// VSCodeLatest is the sentinel version meaning "whatever the publisher
// currently serves".
const VSCodeLatest = "latest"

// Defaults returns the settings for a stock Jetson Nano (JetPack 4.x,
// CUDA 10.2) preparing a llama.cpp build.
func Defaults() Settings {
	return Settings{
		SwapSizeGB: 8,
		SwapFile:   "/swapfile",
		FstabPath:  "/etc/fstab",

		Packages: []string{
			"build-essential",
			"cmake",
			"git",
			"curl",
			"libcurl4-openssl-dev",
			"python3-pip",
		},

		InstallVSCode: true,
		VSCodeVersion: "1.85.3",
		Arch:          "arm64",

		CUDAVersionedDir: "/usr/local/cuda-10.2",
		CUDALinkPath:     "/usr/local/cuda",
		CUDAPackage:      "cuda-toolkit-10-2",
		NvccRelease:      "release 10.2",

		ProfilePath:     "~/.bashrc",
		ProfileEncoding: "utf-8",
		EnvLines: []string{
			"export PATH=/usr/local/cuda/bin:$PATH",
			"export LD_LIBRARY_PATH=/usr/local/cuda/lib64:$LD_LIBRARY_PATH",
		},
	}
}

// overrides mirrors Settings with pointer fields so an overrides file can
// set any subset without clobbering defaults.
type overrides struct {
	SwapSizeGB  *int    `yaml:"swap_size_gb"`
	SwapFile    *string `yaml:"swap_file"`
	FstabPath   *string `yaml:"fstab_path"`
	DisableSwap *bool   `yaml:"disable_swap"`

	Packages      []string `yaml:"packages"`
	DisableUpdate *bool    `yaml:"disable_update"`

	InstallVSCode *bool   `yaml:"install_vscode"`
	VSCodeVersion *string `yaml:"vscode_version"`
	Arch          *string `yaml:"arch"`

	CUDAVersionedDir *string `yaml:"cuda_versioned_dir"`
	CUDALinkPath     *string `yaml:"cuda_link_path"`
	CUDAPackage      *string `yaml:"cuda_package"`
	NvccRelease      *string `yaml:"nvcc_release"`

	ProfilePath     *string  `yaml:"profile_path"`
	ProfileEncoding *string  `yaml:"profile_encoding"`
	EnvLines        []string `yaml:"env_lines"`
}

// ApplyOverridesFile merges the YAML overrides file at path into s.
// Fields absent from the file keep their current values.
func (s *Settings) ApplyOverridesFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return jperrors.NewValidationError("config", fmt.Sprintf("cannot read overrides file %s", path), err)
	}

	var ov overrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return jperrors.NewValidationError("config", fmt.Sprintf("cannot parse overrides file %s", path), err)
	}

	if ov.SwapSizeGB != nil {
		s.SwapSizeGB = *ov.SwapSizeGB
	}
	if ov.SwapFile != nil {
		s.SwapFile = *ov.SwapFile
	}
	if ov.FstabPath != nil {
		s.FstabPath = *ov.FstabPath
	}
	if ov.DisableSwap != nil {
		s.DisableSwap = *ov.DisableSwap
	}
	if len(ov.Packages) > 0 {
		s.Packages = append([]string(nil), ov.Packages...)
	}
	if ov.DisableUpdate != nil {
		s.DisableUpdate = *ov.DisableUpdate
	}
	if ov.InstallVSCode != nil {
		s.InstallVSCode = *ov.InstallVSCode
	}
	if ov.VSCodeVersion != nil {
		s.VSCodeVersion = *ov.VSCodeVersion
	}
	if ov.Arch != nil {
		s.Arch = *ov.Arch
	}
	if ov.CUDAVersionedDir != nil {
		s.CUDAVersionedDir = *ov.CUDAVersionedDir
	}
	if ov.CUDALinkPath != nil {
		s.CUDALinkPath = *ov.CUDALinkPath
	}
	if ov.CUDAPackage != nil {
		s.CUDAPackage = *ov.CUDAPackage
	}
	if ov.NvccRelease != nil {
		s.NvccRelease = *ov.NvccRelease
	}
	if ov.ProfilePath != nil {
		s.ProfilePath = *ov.ProfilePath
	}
	if ov.ProfileEncoding != nil {
		s.ProfileEncoding = *ov.ProfileEncoding
	}
	if len(ov.EnvLines) > 0 {
		s.EnvLines = append([]string(nil), ov.EnvLines...)
	}

	return nil
}

// Validate checks the assembled settings before any operation runs.
func (s Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if ok := asValidationErrors(err, &fieldErrs); ok && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return jperrors.NewValidationError(first.Field(), fmt.Sprintf("failed %q constraint", first.Tag()), err)
		}
		return jperrors.NewValidationError("settings", "invalid configuration", err)
	}
	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	if errs, ok := err.(validator.ValidationErrors); ok {
		*target = errs
		return true
	}
	return false
}
