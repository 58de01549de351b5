package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ryzenmon/ryzenmon/pkg/cert"
	"github.com/spf13/cobra"
)

func certCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cert",
		Short: "Certificate management",
		Long:  "Issue and verify mTLS certificates for the telemetry agent",
	}

	cmd.AddCommand(certInitCmd())
	cmd.AddCommand(certIssueCmd())
	cmd.AddCommand(certVerifyCmd())

	return cmd
}

// defaultCAPath returns the default CA directory
func defaultCAPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".ryzenmon", "ca"), nil
}

func certInitCmd() *cobra.Command {
	var (
		caPath       string
		organization string
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize certificate authority",
		Long: `Initialize a certificate authority (CA) for the agent's mTLS setup.

This command creates a self-signed CA certificate and private key that
sign the server and client certificates the agent requires.

Examples:
  # Initialize CA in default location
  ryzenmon cert init

  # Initialize CA in custom location
  ryzenmon cert init --ca-path /path/to/ca

  # Force overwrite existing CA
  ryzenmon cert init --force`,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Default CA path
			if caPath == "" {
				var err error
				caPath, err = defaultCAPath()
				if err != nil {
					return err
				}
			}

			// Create directory
			if err := os.MkdirAll(caPath, 0o700); err != nil {
				return fmt.Errorf("failed to create CA directory: %w", err)
			}

			certPath := filepath.Join(caPath, "ca.crt")
			keyPath := filepath.Join(caPath, "ca.key")

			// Check if CA already exists
			if !force {
				if _, err := os.Stat(certPath); err == nil {
					return fmt.Errorf("CA certificate already exists at %s (use --force to overwrite)", certPath)
				}
			}

			// Create new CA
			authority, err := cert.NewAuthority(organization)
			if err != nil {
				return fmt.Errorf("failed to create CA: %w", err)
			}

			// Save CA files
			if err := authority.SaveCA(certPath, keyPath); err != nil {
				return fmt.Errorf("failed to save CA: %w", err)
			}

			fmt.Println("Certificate Authority initialized successfully")
			fmt.Printf("CA Certificate: %s\n", certPath)
			fmt.Printf("CA Private Key: %s\n", keyPath)
			fmt.Println("\nIMPORTANT: Keep the private key secure and backed up!")

			return nil
		},
	}

	cmd.Flags().StringVar(&caPath, "ca-path", "", "Path to CA directory")
	cmd.Flags().StringVar(&organization, "org", "ryzenmon", "Organization name for the CA subject")
	cmd.Flags().BoolVar(&force, "force", false, "Force overwrite existing CA")

	return cmd
}

func certIssueCmd() *cobra.Command {
	var (
		kind       string
		commonName string
		hosts      []string
		output     string
		keyOutput  string
		caPath     string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a server or client certificate",
		Long: `Issue a certificate signed by the CA for the agent's mTLS setup.

Server certificates carry the DNS names and IP addresses clients connect
to; client certificates carry only a common name, which the agent logs
per request.

Examples:
  # Issue a server certificate for the agent host
  ryzenmon cert issue --type server --cn agent.local --host agent.local --host 192.168.1.100

  # Issue a client certificate
  ryzenmon cert issue --type client --cn operator

  # Custom output paths
  ryzenmon cert issue --type server --cn agent.local --host localhost \
    --output server.pem --key server.key`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if kind != "server" && kind != "client" {
				return fmt.Errorf("type must be either 'server' or 'client'")
			}
			if commonName == "" {
				return fmt.Errorf("common name is required")
			}
			if kind == "server" && len(hosts) == 0 {
				return fmt.Errorf("at least one --host is required for server certificates")
			}

			// Default CA path
			if caPath == "" {
				var err error
				caPath, err = defaultCAPath()
				if err != nil {
					return err
				}
			}

			// Load CA
			authority, err := cert.LoadAuthority(
				filepath.Join(caPath, "ca.crt"),
				filepath.Join(caPath, "ca.key"),
			)
			if err != nil {
				return fmt.Errorf("failed to load CA (run 'ryzenmon cert init' first): %w", err)
			}

			// Issue certificate
			var certificate *cert.Certificate
			if kind == "server" {
				certificate, err = authority.IssueServer(commonName, hosts)
			} else {
				certificate, err = authority.IssueClient(commonName)
			}
			if err != nil {
				return fmt.Errorf("failed to issue certificate: %w", err)
			}

			// Generate output filenames if not specified
			if output == "" {
				output = kind + ".pem"
			}
			if keyOutput == "" {
				keyOutput = strings.TrimSuffix(output, ".pem") + ".key"
			}

			// Save certificate and key
			if err := certificate.Save(output, keyOutput); err != nil {
				return fmt.Errorf("failed to save certificate: %w", err)
			}

			// Display information
			fmt.Printf("Issued %s certificate for %q\n", kind, commonName)
			fmt.Printf("Certificate: %s\n", output)
			fmt.Printf("Private Key: %s\n", keyOutput)

			// Show certificate details
			fmt.Printf("\nCertificate Details:\n")
			fmt.Printf("  Subject: %s\n", certificate.Subject)
			fmt.Printf("  Serial: %s\n", certificate.SerialNumber)
			fmt.Printf("  Valid From: %s\n", certificate.NotBefore.Format("2006-01-02 15:04:05"))
			fmt.Printf("  Valid Until: %s\n", certificate.NotAfter.Format("2006-01-02 15:04:05"))
			if len(certificate.DNSNames) > 0 {
				fmt.Printf("  DNS Names: %s\n", strings.Join(certificate.DNSNames, ", "))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "type", "t", "", "Certificate type: server or client (required)")
	cmd.Flags().StringVar(&commonName, "cn", "", "Certificate common name (required)")
	cmd.Flags().StringArrayVar(&hosts, "host", nil, "DNS name or IP address (server certificates, repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output certificate file")
	cmd.Flags().StringVar(&keyOutput, "key", "", "Output private key file")
	cmd.Flags().StringVar(&caPath, "ca-path", "", "Path to CA directory")

	if err := cmd.MarkFlagRequired("type"); err != nil {
		// Log the error but don't fail - this is a development-time check
		fmt.Fprintf(os.Stderr, "Warning: failed to mark flag 'type' as required: %v\n", err)
	}
	if err := cmd.MarkFlagRequired("cn"); err != nil {
		// Log the error but don't fail - this is a development-time check
		fmt.Fprintf(os.Stderr, "Warning: failed to mark flag 'cn' as required: %v\n", err)
	}

	return cmd
}

func certVerifyCmd() *cobra.Command {
	var caPath string

	cmd := &cobra.Command{
		Use:   "verify [certificate]",
		Short: "Verify a certificate against the CA",
		Long: `Verify a certificate against the CA and display its contents.

Examples:
  # Verify a certificate
  ryzenmon cert verify server.pem

  # Verify with custom CA path
  ryzenmon cert verify server.pem --ca-path /path/to/ca`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			certFile := args[0]

			// Default CA path
			if caPath == "" {
				var err error
				caPath, err = defaultCAPath()
				if err != nil {
					return err
				}
			}

			// Verify certificate
			caCertPath := filepath.Join(caPath, "ca.crt")
			result, err := cert.VerifyCertificateFile(certFile, caCertPath)
			if err != nil {
				return fmt.Errorf("failed to verify certificate: %w", err)
			}

			// Display result
			fmt.Println(cert.FormatVerifyResult(result))

			// Exit with error code if invalid
			if !result.Valid {
				os.Exit(1)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&caPath, "ca-path", "", "Path to CA directory")

	return cmd
}
