package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/authops/internal/config"
	"github.com/systmms/authops/pkg/credential"
)

func NewProvidersCommand(globals *Globals) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List available credential providers",
		Long: `Display the credential backends authops can fetch sign-in credentials
from, plus any providers configured in the settings file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Supported Provider Kinds:")
			fmt.Println("=========================")

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "KIND\tDESCRIPTION\n")
			_, _ = fmt.Fprintf(w, "----\t-----------\n")
			for _, kind := range credential.Kinds() {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", kind, kindDescription(kind))
			}
			_ = w.Flush()

			file, err := config.LoadFile(globals.ConfigFile, globals.ConfigExplicit)
			if err != nil {
				return err
			}
			configured := configuredKinds(file.Providers)
			if len(configured) > 0 {
				fmt.Println("\nConfigured in", globals.ConfigFile+":")
				fmt.Println("=========================")
				for _, kind := range configured {
					fmt.Println("  " + string(kind))
				}
			}

			if verbose {
				fmt.Println("\nProvider Details:")
				fmt.Println("=================")
				for _, kind := range credential.Kinds() {
					fmt.Printf("\n%s:\n", kind)
					for _, detail := range kindDetails(kind) {
						fmt.Printf("  - %s\n", detail)
					}
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show detailed provider information")

	return cmd
}

func kindDescription(kind credential.Kind) string {
	descriptions := map[credential.Kind]string{
		credential.KindKeyVault:    "Azure Key Vault secret via SDK",
		credential.KindLocalFile:   "Local password or PKCS#12 certificate file",
		credential.KindEnvironment: "Environment variable",
		credential.KindCISecret:    "CI secret store (GitHub Actions)",
		credential.KindAWSSecrets:  "AWS Secrets Manager via SDK",
		credential.KindGCPSecrets:  "Google Cloud Secret Manager via SDK",
	}
	if desc, ok := descriptions[kind]; ok {
		return desc
	}
	return "Unknown provider kind"
}

func kindDetails(kind credential.Kind) []string {
	details := map[credential.Kind][]string{
		credential.KindKeyVault: {
			"Settings: vault_url, secret_name; optional tenant_id/client_id/client_secret",
			"Default Azure credential chain when no service principal is configured",
			"Honors the secret's enabled flag and not-before/expires window",
		},
		credential.KindLocalFile: {
			"Settings: path; optional password for protected PKCS#12 bundles",
			"Certificate vs password decided by content sniffing",
		},
		credential.KindEnvironment: {
			"Settings: variable",
			"Unset and empty variables are both retrieval failures",
		},
		credential.KindCISecret: {
			"Settings: repository (owner/name), secret_name; optional token",
			"Value read from the runner environment variable named after the secret",
			"With a token, the secret's existence is verified against the repository first",
		},
		credential.KindAWSSecrets: {
			"Settings: secret_name; optional region, endpoint, static credentials",
			"Binary secrets classify as certificates, string secrets by sniffing",
		},
		credential.KindGCPSecrets: {
			"Settings: project_id, secret_name; optional service_account_key_path",
			"Reads the latest enabled secret version",
		},
	}
	return details[kind]
}

func configuredKinds(p config.ProviderSettings) []credential.Kind {
	var kinds []credential.Kind
	if p.KeyVault != nil {
		kinds = append(kinds, credential.KindKeyVault)
	}
	if p.LocalFile != nil {
		kinds = append(kinds, credential.KindLocalFile)
	}
	if p.Environment != nil {
		kinds = append(kinds, credential.KindEnvironment)
	}
	if p.CISecret != nil {
		kinds = append(kinds, credential.KindCISecret)
	}
	if p.AWSSecrets != nil {
		kinds = append(kinds, credential.KindAWSSecrets)
	}
	if p.GCPSecrets != nil {
		kinds = append(kinds, credential.KindGCPSecrets)
	}
	return kinds
}
