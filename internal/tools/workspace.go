package tools

import (
	"fmt"
	"path/filepath"
	"strings"
)

// errOutsideWorkspace is the exact error text every path-handling tool
// returns on a boundary violation, confirmed against every tool in
// original_source/src/tools (read_file.rs, write_file.rs, list_files.rs,
// cd.rs, send_file.rs).
const errOutsideWorkspace = "Path is outside workspace boundary"

// resolveUnderRoot joins rel onto root, canonicalizes the result, and
// verifies it still falls under the canonical root. canonicalTarget, when
// false, canonicalizes the parent directory instead of the joined path
// itself — write_file does this because the target file may not exist yet.
func resolveUnderRoot(root, rel string, canonicalTarget bool) (string, error) {
	joined := filepath.Join(root, rel)

	canonicalRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("%s", errOutsideWorkspace)
	}

	checkPath := joined
	if !canonicalTarget {
		checkPath = filepath.Dir(joined)
	}

	canonicalCheck, err := filepath.EvalSymlinks(checkPath)
	if err != nil {
		return "", fmt.Errorf("%s", errOutsideWorkspace)
	}

	if canonicalCheck != canonicalRoot && !strings.HasPrefix(canonicalCheck, canonicalRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%s", errOutsideWorkspace)
	}

	return joined, nil
}

// resolveWorkspacePath resolves rel against the workspace root. Used by
// read_file and write_file, which always address the workspace root
// regardless of the turn's cwd.
func resolveWorkspacePath(workspace, rel string, canonicalTarget bool) (string, error) {
	return resolveUnderRoot(workspace, rel, canonicalTarget)
}

// resolveCWDPath resolves rel against the turn's current working directory,
// then re-checks the result against the workspace boundary. Used by
// list_files, cd and send_file.
func resolveCWDPath(workspace, cwd, rel string) (string, error) {
	joined := filepath.Join(cwd, rel)

	canonicalRoot, err := filepath.EvalSymlinks(workspace)
	if err != nil {
		return "", fmt.Errorf("%s", errOutsideWorkspace)
	}
	canonicalJoined, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", fmt.Errorf("%s", errOutsideWorkspace)
	}
	if canonicalJoined != canonicalRoot && !strings.HasPrefix(canonicalJoined, canonicalRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%s", errOutsideWorkspace)
	}
	return joined, nil
}

// displayPath renders an absolute, workspace-contained path relative to the
// workspace root, matching cd.rs's "." at the root / relative path
// otherwise.
func displayPath(workspace, abs string) string {
	rel, err := filepath.Rel(workspace, abs)
	if err != nil || rel == "." {
		return "."
	}
	return rel
}
