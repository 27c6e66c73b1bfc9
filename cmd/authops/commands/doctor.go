package commands

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/authops/internal/config"
	"github.com/systmms/authops/internal/providers"
	"github.com/systmms/authops/internal/session"
	"github.com/systmms/authops/pkg/credential"
)

// providerHealth is one row of the doctor report.
type providerHealth struct {
	Kind   credential.Kind
	Status string
	Detail string
}

// chromeCandidates are the browser binaries the driver can launch, in the
// order chromedp's default discovery tries them.
var chromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
	"chrome",
}

func findChrome() (string, bool) {
	for _, name := range chromeCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, true
		}
	}
	return "", false
}

// checkOutputDir verifies the session/screenshot directory can be written.
func checkOutputDir(dir string) error {
	if err := session.New(dir).EnsureDir(); err != nil {
		return err
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}

func NewDoctorCommand(globals *Globals) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment and provider configuration",
		Long: `Verify the sign-in prerequisites: a launchable browser binary, a
writable output directory, the settings file, and every configured
credential provider.

Each configured provider is constructed with its eager validation, so field
errors and unreachable-backend setup problems surface here instead of in
the middle of a sign-in.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			healthy := true

			if path, ok := findChrome(); ok {
				globals.Logger.Info("Browser binary: %s", path)
			} else {
				globals.Logger.Warn("No Chrome or Chromium binary found on PATH; login will not be able to launch a browser")
			}

			if err := checkOutputDir(outputDir); err != nil {
				globals.Logger.Error("Output directory %s: %v", outputDir, err)
				healthy = false
			} else {
				abs, _ := filepath.Abs(outputDir)
				globals.Logger.Info("Output directory writable: %s", abs)
			}

			globals.Logger.Info("Checking %s...", globals.ConfigFile)
			file, err := config.LoadFile(globals.ConfigFile, globals.ConfigExplicit)
			if err != nil {
				globals.Logger.Error("Configuration error: %v", err)
				return err
			}

			configured := configuredKinds(file.Providers)
			if len(configured) == 0 {
				globals.Logger.Warn("No providers configured in %s; login will rely on flags only", globals.ConfigFile)
				if !healthy {
					return fmt.Errorf("environment checks failed")
				}
				return nil
			}

			results := make([]providerHealth, 0, len(configured))
			for _, kind := range configured {
				health := providerHealth{Kind: kind, Status: "ok"}
				if _, err := providers.Build(kind, file.Providers, globals.Logger); err != nil {
					health.Status = "error"
					health.Detail = err.Error()
					healthy = false
				}
				results = append(results, health)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "KIND\tSTATUS\tDETAIL\n")
			_, _ = fmt.Fprintf(w, "----\t------\t------\n")
			for _, health := range results {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", health.Kind, health.Status, health.Detail)
			}
			_ = w.Flush()

			if !healthy {
				return fmt.Errorf("one or more checks failed")
			}
			globals.Logger.Info("All checks passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", config.DefaultOutputDir, "Directory checked for session/screenshot writability")

	return cmd
}
