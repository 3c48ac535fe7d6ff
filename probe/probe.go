/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package probe

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Runner names, used to key the failing-test extraction grammar.
const (
	RunnerPytest   = "pytest"
	RunnerUnittest = "unittest"
	RunnerNPM      = "npm"
	RunnerCargo    = "cargo"
	RunnerGo       = "go"
	RunnerRSpec    = "rspec"
	RunnerMaven    = "maven"
	RunnerGradle   = "gradle"
)

// TestRunner describes a detected test suite.
type TestRunner struct {
	Command  string
	Timeout  time.Duration
	Language string
	Name     string
}

// Installer describes a detected dependency install step.
type Installer struct {
	Command  string
	Timeout  time.Duration
	Language string
}

// NoTestsExitCode returns the runner-specific exit code meaning "zero
// tests collected", or -1 when the runner has no such code.
func NoTestsExitCode(runnerName string) int {
	if runnerName == RunnerPytest {
		return 5
	}
	return -1
}

// DetectInstaller returns the project's dependency install command, or
// nil when no package manager is recognized.
func DetectInstaller(dir string) *Installer {
	// Python: prefer an editable install with dev extras, falling back
	// progressively. The chain tolerates projects without extras.
	if exists(dir, "pyproject.toml") {
		return &Installer{
			Command: "pip install -e '.[dev,test,tests]' 2>/dev/null" +
				" || pip install -e '.[dev]' 2>/dev/null" +
				" || pip install -e . 2>/dev/null" +
				" || pip install -r requirements.txt 2>/dev/null" +
				" || true",
			Timeout:  5 * time.Minute,
			Language: "python",
		}
	}
	if exists(dir, "setup.py") || exists(dir, "setup.cfg") {
		return &Installer{
			Command: "pip install -e '.[dev,test]' 2>/dev/null" +
				" || pip install -e . 2>/dev/null" +
				" || true",
			Timeout:  5 * time.Minute,
			Language: "python",
		}
	}
	if exists(dir, "requirements.txt") {
		return &Installer{Command: "pip install -r requirements.txt", Timeout: 5 * time.Minute, Language: "python"}
	}

	if exists(dir, "package-lock.json") {
		return &Installer{Command: "npm ci", Timeout: 5 * time.Minute, Language: "javascript"}
	}
	if exists(dir, "yarn.lock") {
		return &Installer{Command: "yarn install --frozen-lockfile", Timeout: 5 * time.Minute, Language: "javascript"}
	}
	if exists(dir, "pnpm-lock.yaml") {
		return &Installer{Command: "pnpm install --frozen-lockfile", Timeout: 5 * time.Minute, Language: "javascript"}
	}
	if exists(dir, "package.json") {
		return &Installer{Command: "npm install", Timeout: 5 * time.Minute, Language: "javascript"}
	}

	if exists(dir, "Gemfile") {
		return &Installer{Command: "bundle install", Timeout: 5 * time.Minute, Language: "ruby"}
	}
	if exists(dir, "go.mod") {
		return &Installer{Command: "go mod download", Timeout: 3 * time.Minute, Language: "go"}
	}
	if exists(dir, "Cargo.toml") {
		return &Installer{Command: "cargo fetch", Timeout: 5 * time.Minute, Language: "rust"}
	}
	return nil
}

// DetectRunner returns the project's test runner, or nil when no test
// suite is recognized. Checks run in priority order so a polyglot repo
// gets a deterministic answer.
func DetectRunner(dir string) *TestRunner {
	if exists(dir, "pytest.ini") || exists(dir, "conftest.py") || pyprojectHasPytest(dir) {
		return &TestRunner{
			Command:  "python -m pytest -v --tb=short",
			Timeout:  5 * time.Minute,
			Language: "python",
			Name:     RunnerPytest,
		}
	}
	if (exists(dir, "pyproject.toml") || exists(dir, "setup.py")) && hasTestFiles(dir, "test_*.py") {
		return &TestRunner{
			Command:  "python -m unittest discover -v",
			Timeout:  5 * time.Minute,
			Language: "python",
			Name:     RunnerUnittest,
		}
	}
	if exists(dir, "package.json") && npmHasTestScript(dir) {
		return &TestRunner{Command: "npm test", Timeout: 5 * time.Minute, Language: "javascript", Name: RunnerNPM}
	}
	if exists(dir, "Cargo.toml") {
		return &TestRunner{Command: "cargo test", Timeout: 10 * time.Minute, Language: "rust", Name: RunnerCargo}
	}
	if exists(dir, "go.mod") && hasTestFiles(dir, "*_test.go") {
		return &TestRunner{Command: "go test -timeout 120s ./...", Timeout: 3 * time.Minute, Language: "go", Name: RunnerGo}
	}
	if exists(dir, ".rspec") || isDir(dir, "spec") {
		return &TestRunner{Command: "bundle exec rspec", Timeout: 5 * time.Minute, Language: "ruby", Name: RunnerRSpec}
	}
	if exists(dir, "pom.xml") {
		cmd := "mvn test -B"
		if exists(dir, "mvnw") {
			cmd = "./mvnw test -B"
		}
		return &TestRunner{Command: cmd, Timeout: 10 * time.Minute, Language: "java", Name: RunnerMaven}
	}
	if exists(dir, "build.gradle") || exists(dir, "build.gradle.kts") {
		cmd := "gradle test"
		if exists(dir, "gradlew") {
			cmd = "./gradlew test"
		}
		return &TestRunner{Command: cmd, Timeout: 10 * time.Minute, Language: "java", Name: RunnerGradle}
	}
	return nil
}

// DetectLanguage guesses the primary language from marker files.
func DetectLanguage(dir string) string {
	switch {
	case exists(dir, "pyproject.toml"), exists(dir, "setup.py"),
		exists(dir, "setup.cfg"), exists(dir, "requirements.txt"):
		return "python"
	case exists(dir, "package.json"):
		return "javascript"
	case exists(dir, "Cargo.toml"):
		return "rust"
	case exists(dir, "go.mod"):
		return "go"
	case exists(dir, "Gemfile"), exists(dir, ".ruby-version"):
		return "ruby"
	case exists(dir, "pom.xml"), exists(dir, "build.gradle"), exists(dir, "build.gradle.kts"):
		return "java"
	}
	return ""
}

func exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

func isDir(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && info.IsDir()
}

func hasTestFiles(dir, pattern string) bool {
	found := false
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found {
			return fs.SkipAll
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	return found
}

func pyprojectHasPytest(dir string) bool {
	data, err := os.ReadFile(filepath.Join(dir, "pyproject.toml"))
	if err != nil {
		return false
	}
	return strings.Contains(string(data), "[tool.pytest")
}

// npmHasTestScript reports whether package.json carries a real test
// script, ignoring npm's "echo ... && exit 1" placeholder.
func npmHasTestScript(dir string) bool {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return false
	}
	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return false
	}
	script := pkg.Scripts["test"]
	if script == "" {
		return false
	}
	if strings.Contains(script, "echo") && strings.Contains(script, "Error") {
		return false
	}
	return true
}
