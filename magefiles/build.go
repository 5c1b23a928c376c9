//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "staybook"
	binaryDir  = "bin"
	cmdDir     = "./cmd/staybook"
	smokeProp  = "SMOKE-1"
)

// Build compiles the staybook binary to bin/, stamped with the git revision
// when one is available.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-o", filepath.Join(binaryDir, binaryName)}
	if rev, err := sh.Output("git", "rev-parse", "--short", "HEAD"); err == nil && rev != "" {
		args = append(args, "-ldflags", "-X github.com/mesh-intelligence/staybook/pkg/staybook.Revision="+rev)
	}
	return sh.RunV(binGo, append(args, cmdDir)...)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}

// Smoke builds the binary and drives it through a throwaway config and
// data directory: init, availability import and listing, a calendar
// render for next month, a dry-run enquiry, and a party reshape.
func Smoke() error {
	mg.Deps(Build)
	dir, err := os.MkdirTemp("", "staybook-smoke-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	month := time.Now().UTC().AddDate(0, 1, 0)
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	days := "["
	for i := 0; i < 7; i++ {
		if i > 0 {
			days += ","
		}
		d := first.AddDate(0, 0, i)
		days += fmt.Sprintf(`{"date":%q,"available":%t,"code":"7","changeover":%t}`,
			d.Format("2006-01-02"), i != 3, d.Weekday() == time.Saturday)
	}
	days += "]"
	daysFile := filepath.Join(dir, "days.json")
	if err := os.WriteFile(daysFile, []byte(days), 0o644); err != nil {
		return err
	}

	bin := filepath.Join(binaryDir, binaryName)
	global := []string{"--config-dir", filepath.Join(dir, "config"), "--data-dir", filepath.Join(dir, "data")}
	from, to := first.Format("2006-01-02"), first.AddDate(0, 0, 2).Format("2006-01-02")
	for _, args := range [][]string{
		{"init"},
		{"version"},
		{"avail", "import", smokeProp, daysFile},
		{"avail", "list"},
		{"avail", "show", smokeProp, first.Format("2006-01"), "--from", from, "--to", to},
		{"enquire", "--prop", smokeProp, "--from", from, "--to", to, "--adults", "2", "--dry-run"},
		{"party", "adult=2,child=2", "adult=2", "adult=2,child=1"},
	} {
		if err := sh.RunV(bin, append(global, args...)...); err != nil {
			return fmt.Errorf("staybook %v: %w", args, err)
		}
	}
	return nil
}
