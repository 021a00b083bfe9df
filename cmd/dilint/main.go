package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/sghaida/odinject/manifest"
)

const (
	envManifest = "DILINT_MANIFEST"
	envRoot     = "DILINT_ROOT_PACKAGE"
)

// run executes the linter and returns an exit code.
// It exists separately from main to allow unit testing without os.Exit.
func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("dilint", flag.ContinueOnError)
	flags.SetOutput(stderr)

	manifestPath := flags.String("manifest", "", "path to the injection manifest (default $"+envManifest+")")
	rootPackage := flags.String("root", "", "allowed root package (default $"+envRoot+", the manifest's rootPackage or the go.mod module)")
	envPath := flags.String("env", ".env", "dotenv file with defaults; a missing default file is ignored")
	outPath := flags.String("out", "", "also write the construction order to this file")
	noColor := flags.Bool("no-color", false, "disable colored output")

	if err := flags.Parse(args); err != nil {
		return 2
	}

	if err := loadEnv(*envPath, flagSet(flags, "env")); err != nil {
		_, _ = fmt.Fprintln(stderr, "dilint:", err)
		return 2
	}

	path := firstNonEmpty(*manifestPath, os.Getenv(envManifest))
	if path == "" {
		_, _ = fmt.Fprintln(stderr, "usage: dilint -manifest <file.yaml> [-root <package>] [-env <file>] [-out <file>]")
		return 2
	}

	m, err := manifest.Load(path)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "dilint:", err)
		return 2
	}

	root := firstNonEmpty(*rootPackage, os.Getenv(envRoot), m.RootPackage)
	if root == "" {
		if _, mod, err := findModule(filepath.Dir(path)); err == nil {
			root = mod
		}
	}

	pal := newPalette(*noColor)

	failed := false
	if err := m.Validate(root); err != nil {
		failed = true
		for _, line := range strings.Split(err.Error(), "\n") {
			_, _ = fmt.Fprintln(stderr, pal.problem(line))
		}
	}

	order, err := m.Order()
	if err != nil {
		_, _ = fmt.Fprintln(stderr, pal.problem(err.Error()))
		return 1
	}
	if failed {
		return 1
	}

	report := formatOrder(order)
	header, body, _ := strings.Cut(report, "\n")
	_, _ = fmt.Fprintln(stdout, pal.header(header))
	_, _ = io.WriteString(stdout, body)
	if *outPath != "" {
		if err := reports.write(filepath.Clean(*outPath), []byte(report), 0o644); err != nil {
			_, _ = fmt.Fprintln(stderr, "dilint:", err)
			return 1
		}
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// loadEnv loads path into the environment without overriding variables
// already set. A missing file is only an error when it was asked for.
func loadEnv(path string, explicit bool) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err != nil && !explicit && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// palette colors terminal output. The -out file is always plain.
type palette struct {
	problem func(a ...any) string
	header  func(a ...any) string
}

func newPalette(disabled bool) palette {
	problem := color.New(color.FgRed)
	header := color.New(color.FgGreen, color.Bold)
	if disabled {
		problem.DisableColor()
		header.DisableColor()
	}
	return palette{problem: problem.SprintFunc(), header: header.SprintFunc()}
}

// formatOrder renders the construction order, leaves first.
func formatOrder(order []string) string {
	var b strings.Builder
	b.WriteString("construction order (" + strconv.Itoa(len(order)) + " types):\n")
	for i, typ := range order {
		b.WriteString("  " + strconv.Itoa(i+1) + ". " + typ + "\n")
	}
	return b.String()
}

func flagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
