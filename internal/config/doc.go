// Package config reads process settings from the environment.
//
// An optional .env file is loaded first; variables already present in the
// environment win over the file. See the Env* constants for the recognized
// names.
package config
