package cert

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"
)

// VerifyResult contains the result of certificate verification
type VerifyResult struct {
	Valid       bool
	Error       string
	Certificate *x509.Certificate
}

// VerifyCertificateFile verifies a certificate file against a CA certificate
func VerifyCertificateFile(certPath, caCertPath string) (*VerifyResult, error) {
	// Load certificate
	certPEM, err := os.ReadFile(certPath) // #nosec G304 -- certPath is a user-specified certificate file path
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate: %w", err)
	}

	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil {
		return nil, fmt.Errorf("failed to decode certificate PEM")
	}

	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	// Load CA certificate
	caCertPEM, err := os.ReadFile(caCertPath) // #nosec G304 -- caCertPath is a user-specified CA certificate file path
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	caCertBlock, _ := pem.Decode(caCertPEM)
	if caCertBlock == nil {
		return nil, fmt.Errorf("failed to decode CA certificate PEM")
	}

	caCert, err := x509.ParseCertificate(caCertBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CA certificate: %w", err)
	}

	// Create certificate pool with CA
	roots := x509.NewCertPool()
	roots.AddCert(caCert)

	// Verify certificate
	opts := x509.VerifyOptions{
		Roots:     roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}

	result := &VerifyResult{
		Certificate: cert,
	}

	// Try to verify
	if _, err := cert.Verify(opts); err != nil {
		result.Valid = false
		result.Error = err.Error()
	} else {
		result.Valid = true
	}

	return result, nil
}

// FormatVerifyResult formats verification result for display
func FormatVerifyResult(result *VerifyResult) string {
	var sb strings.Builder

	sb.WriteString("Certificate Verification Result\n")
	sb.WriteString("===============================\n\n")

	if result.Valid {
		sb.WriteString("Status: VALID ✓\n")
	} else {
		sb.WriteString("Status: INVALID ✗\n")
		sb.WriteString(fmt.Sprintf("Error: %s\n", result.Error))
	}

	sb.WriteString("\nCertificate Details:\n")
	sb.WriteString(fmt.Sprintf("  Subject: %s\n", result.Certificate.Subject))
	sb.WriteString(fmt.Sprintf("  Issuer: %s\n", result.Certificate.Issuer))
	sb.WriteString(fmt.Sprintf("  Serial: %s\n", result.Certificate.SerialNumber))
	sb.WriteString(fmt.Sprintf("  Valid From: %s\n", result.Certificate.NotBefore))
	sb.WriteString(fmt.Sprintf("  Valid Until: %s\n", result.Certificate.NotAfter))

	if len(result.Certificate.DNSNames) > 0 {
		sb.WriteString(fmt.Sprintf("  DNS Names: %s\n", strings.Join(result.Certificate.DNSNames, ", ")))
	}
	if len(result.Certificate.IPAddresses) > 0 {
		ips := make([]string, 0, len(result.Certificate.IPAddresses))
		for _, ip := range result.Certificate.IPAddresses {
			ips = append(ips, ip.String())
		}
		sb.WriteString(fmt.Sprintf("  IP Addresses: %s\n", strings.Join(ips, ", ")))
	}

	return sb.String()
}
