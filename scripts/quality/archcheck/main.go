package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePrefix = "ex-otogi-gateway/"

type listedPackage struct {
	ImportPath   string
	Imports      []string
	TestImports  []string
	XTestImports []string
}

func main() {
	packages, err := listPackages()
	if err != nil {
		fmt.Fprintf(os.Stderr, "arch-check: %v\n", err)
		os.Exit(1)
	}

	violations := collectViolations(packages)
	if len(violations) == 0 {
		_, _ = fmt.Fprintf(os.Stdout, "arch-check: passed\n")
		return
	}

	_, _ = fmt.Fprintf(os.Stdout, "arch-check: architecture violations:\n")
	for _, violation := range violations {
		_, _ = fmt.Fprintf(os.Stdout, "  - %s\n", violation)
	}
	os.Exit(1)
}

func listPackages() ([]listedPackage, error) {
	cmd := exec.Command("go", "list", "-json", "-test", "./...")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("go list -json -test ./...: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(stdout.Bytes()))
	result := make([]listedPackage, 0, 64)
	for {
		var pkg listedPackage
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode go list output: %w", err)
		}
		if pkg.ImportPath == "" {
			continue
		}
		result = append(result, pkg)
	}

	return result, nil
}

func collectViolations(packages []listedPackage) []string {
	found := make(map[string]struct{})

	for _, pkg := range packages {
		imports := append([]string{}, pkg.Imports...)
		imports = append(imports, pkg.TestImports...)
		imports = append(imports, pkg.XTestImports...)

		for _, imported := range imports {
			reason := violationReason(pkg.ImportPath, imported)
			if reason == "" {
				continue
			}
			entry := fmt.Sprintf("%s -> %s (%s)", pkg.ImportPath, imported, reason)
			found[entry] = struct{}{}
		}
	}

	violations := make([]string, 0, len(found))
	for violation := range found {
		violations = append(violations, violation)
	}
	sort.Strings(violations)

	return violations
}

// layerRule forbids packages under importer from importing packages under any
// of the forbidden prefixes.
type layerRule struct {
	importer  string
	forbidden []string
	reason    string
}

var layerRules = []layerRule{
	{
		importer:  "pkg/gateway",
		forbidden: []string{"pkg/store", "pkg/model", "pkg/client", "internal/", "cmd/"},
		reason:    "pkg/gateway must not import other module packages",
	},
	{
		importer:  "pkg/store",
		forbidden: []string{"pkg/model", "pkg/client", "internal/", "cmd/"},
		reason:    "pkg/store may only import pkg/gateway",
	},
	{
		importer:  "pkg/model",
		forbidden: []string{"pkg/client", "internal/", "cmd/"},
		reason:    "pkg/model may only import pkg/gateway and pkg/store",
	},
	{
		importer:  "pkg/client",
		forbidden: []string{"internal/", "cmd/"},
		reason:    "pkg/client must not import internal/* or cmd/*",
	},
	{
		importer:  "internal/transport",
		forbidden: []string{"pkg/store", "pkg/model", "pkg/client", "cmd/"},
		reason:    "internal/transport may only import pkg/gateway",
	},
}

func violationReason(importer, imported string) string {
	if !strings.HasPrefix(imported, modulePrefix) {
		return ""
	}

	for _, rule := range layerRules {
		if !strings.HasPrefix(importer, modulePrefix+rule.importer) {
			continue
		}
		for _, forbidden := range rule.forbidden {
			if strings.HasPrefix(imported, modulePrefix+forbidden) {
				return rule.reason
			}
		}
	}

	return ""
}
