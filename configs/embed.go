// Package configs provides embedded configuration templates for docindex.
//
// Templates are embedded at build time using Go's //go:embed directive so
// they ship with every distribution of the binary.
//
// The templates are used by:
//   - cmd/docindex/cmd/init.go - creates docindex.yaml in the working directory
//   - cmd/docindex/cmd/config.go - creates the user config at
//     ~/.config/docindex/config.yaml
//
// Configuration hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/docindex/config.yaml)
//  3. Deployment config (docindex.yaml)
//  4. Environment variables (DOCINDEX_*)
package configs

import _ "embed"

// UserConfigTemplate is the template for user/machine-level configuration.
// Created by `docindex config init` at ~/.config/docindex/config.yaml.
// Contains machine-specific settings like the Ollama host and log level.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for deployment-level configuration.
// Created by `docindex init` as docindex.yaml in the working directory.
// Contains the storage layout, chunking parameters, and retry policy for
// one document collection.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
