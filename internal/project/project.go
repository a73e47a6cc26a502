// Package project guesses a project's frameworks from marker files and
// suggests prompt templates for them.
package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type framework struct {
	name string
	// markers ending in "/" must be directories, the rest regular files.
	markers   []string
	templates []string
}

var frameworks = []framework{
	{"react", []string{"package.json", "src/App.jsx", "src/App.tsx", "public/index.html", "src/index.js", "src/index.tsx"},
		[]string{"code-review", "testing", "refactoring"}},
	{"node", []string{"package.json", "server.js", "app.js", "index.js", "src/server.js"},
		[]string{"code-review", "debugging", "testing"}},
	{"python", []string{"requirements.txt", "pyproject.toml", "setup.py", "main.py", "app.py"},
		[]string{"debugging", "refactoring", "testing"}},
	{"django", []string{"manage.py", "settings.py", "requirements.txt", "pyproject.toml"},
		[]string{"code-review", "feature-planning", "refactoring"}},
	{"fastapi", []string{"main.py", "app.py", "requirements.txt", "pyproject.toml"},
		[]string{"code-review", "testing", "feature-planning"}},
	{"java", []string{"pom.xml", "build.gradle", "src/main/java", "build.gradle.kts"},
		[]string{"code-review", "refactoring", "testing"}},
	{"spring", []string{"pom.xml", "src/main/java", "application.properties", "application.yml"},
		[]string{"feature-planning", "code-review", "refactoring"}},
	{"go", []string{"go.mod", "main.go", "go.sum"},
		[]string{"code-review", "testing", "debugging"}},
	{"rust", []string{"Cargo.toml", "src/main.rs", "Cargo.lock"},
		[]string{"code-review", "refactoring", "debugging"}},
	{"flutter", []string{"pubspec.yaml", "lib/main.dart", "android/", "ios/"},
		[]string{"feature-planning", "testing", "code-review"}},
	{"vue", []string{"package.json", "vue.config.js", "src/App.vue", "src/main.js"},
		[]string{"code-review", "testing", "refactoring"}},
	{"angular", []string{"package.json", "angular.json", "src/app/app.module.ts", "src/main.ts"},
		[]string{"feature-planning", "code-review", "testing"}},
	{"nextjs", []string{"package.json", "next.config.js", "pages/", "app/"},
		[]string{"code-review", "feature-planning", "testing"}},
}

// Frameworks with a single strong marker file.
var singleMarker = []string{"go", "rust", "flutter", "python", "node", "java"}

// DefaultTemplates is suggested when nothing specific is detected.
var DefaultTemplates = []string{"code-review", "debugging", "testing"}

var templatePriority = []string{"code-review", "debugging", "testing", "feature-planning", "refactoring"}

const maxSuggestions = 3

func (f framework) threshold() int {
	if slices.Contains(singleMarker, f.name) {
		return 1
	}
	return max(1, len(f.markers)/2)
}

func present(root, marker string) bool {
	if dir, ok := strings.CutSuffix(marker, "/"); ok {
		info, err := os.Stat(filepath.Join(root, dir))
		return err == nil && info.IsDir()
	}
	info, err := os.Stat(filepath.Join(root, marker))
	return err == nil && info.Mode().IsRegular()
}

// Detect returns the frameworks whose marker count reaches their threshold,
// in table order.
func Detect(root string) []string {
	var out []string
	for _, f := range frameworks {
		matches := 0
		for _, m := range f.markers {
			if present(root, m) {
				matches++
			}
		}
		if matches >= f.threshold() {
			out = append(out, f.name)
		}
	}
	return out
}

type packageJSON struct {
	Dependencies    map[string]any `json:"dependencies"`
	DevDependencies map[string]any `json:"devDependencies"`
}

// PackageJSONFramework names the JavaScript framework found in
// package.json dependencies, or "".
func PackageJSONFramework(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return ""
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}
	has := func(dep string) bool {
		_, a := pkg.Dependencies[dep]
		_, b := pkg.DevDependencies[dep]
		return a || b
	}

	switch {
	case has("react") && has("next"):
		return "nextjs"
	case has("react"):
		return "react"
	case has("vue"):
		return "vue"
	case has("@angular/core"):
		return "angular"
	case has("express"):
		return "node"
	}
	return ""
}

// PythonFramework returns "django" or "fastapi" when manage.py or the
// dependency files point to one, else "python".
func PythonFramework(root string) string {
	if present(root, "manage.py") {
		return "django"
	}
	for _, name := range []string{"requirements.txt", "pyproject.toml"} {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		content := strings.ToLower(string(data))
		switch {
		case strings.Contains(content, "fastapi"):
			return "fastapi"
		case strings.Contains(content, "django"):
			return "django"
		}
	}
	return "python"
}

// DetectEnhanced refines Detect with package.json and Python dependency
// checks. A specific JavaScript or Python framework replaces the generic
// "node" or "python" entry.
func DetectEnhanced(root string) []string {
	found := make(map[string]bool)
	for _, name := range Detect(root) {
		found[name] = true
	}

	if js := PackageJSONFramework(root); js != "" {
		found[js] = true
		if js != "node" {
			delete(found, "node")
		}
	}
	if found["python"] {
		if py := PythonFramework(root); py != "python" {
			found[py] = true
			delete(found, "python")
		}
	}

	var out []string
	for _, f := range frameworks {
		if found[f.name] {
			out = append(out, f.name)
		}
	}
	return out
}

// SuggestTemplates returns up to three template names for the detected
// frameworks, most generally useful first.
func SuggestTemplates(root string) []string {
	detected := DetectEnhanced(root)

	wanted := make(map[string]bool)
	for _, f := range frameworks {
		if slices.Contains(detected, f.name) {
			for _, t := range f.templates {
				wanted[t] = true
			}
		}
	}
	if len(wanted) == 0 {
		return slices.Clone(DefaultTemplates)
	}

	var out []string
	for _, t := range templatePriority {
		if wanted[t] {
			out = append(out, t)
		}
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

var titleCaser = cases.Title(language.English)

// Describe renders the detected frameworks as a phrase such as
// "Go project" or "React, Python, and Go project".
func Describe(root string) string {
	return describe(DetectEnhanced(root))
}

func describe(names []string) string {
	titled := make([]string, len(names))
	for i, n := range names {
		titled[i] = titleCaser.String(n)
	}
	switch len(titled) {
	case 0:
		return "Unknown project type"
	case 1:
		return titled[0] + " project"
	case 2:
		return titled[0] + " and " + titled[1] + " project"
	default:
		return strings.Join(titled[:len(titled)-1], ", ") + ", and " + titled[len(titled)-1] + " project"
	}
}

// PrimaryFramework returns the first detected framework, or "".
func PrimaryFramework(root string) string {
	if d := DetectEnhanced(root); len(d) > 0 {
		return d[0]
	}
	return ""
}
