package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var errNoModule = errors.New("no go.mod found")

// findModule returns the directory and module path of the go.mod governing
// dir. The root package defaults to that module path when neither a flag,
// the environment nor the manifest names one.
func findModule(dir string) (string, string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", "", err
	}
	for d := abs; ; d = filepath.Dir(d) {
		data, err := os.ReadFile(filepath.Join(d, "go.mod"))
		switch {
		case err == nil:
			mod, err := modulePath(data)
			if err != nil {
				return "", "", fmt.Errorf("%s: %w", filepath.ToSlash(filepath.Join(d, "go.mod")), err)
			}
			return d, mod, nil
		case !errors.Is(err, os.ErrNotExist):
			return "", "", err
		}
		if filepath.Dir(d) == d {
			return "", "", fmt.Errorf("%w above %s", errNoModule, filepath.ToSlash(dir))
		}
	}
}

// modulePath reads the module directive of a go.mod file. The path may be
// quoted.
func modulePath(gomod []byte) (string, error) {
	sc := bufio.NewScanner(bytes.NewReader(gomod))
	for sc.Scan() {
		rest, ok := strings.CutPrefix(strings.TrimSpace(sc.Text()), "module")
		if !ok || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
			continue
		}
		mod := strings.TrimSpace(rest)
		if unq, err := strconv.Unquote(mod); err == nil {
			mod = unq
		}
		if mod == "" {
			return "", errors.New("empty module path")
		}
		return mod, nil
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", errors.New("missing module directive")
}
