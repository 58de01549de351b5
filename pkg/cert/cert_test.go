package cert

import (
	"path/filepath"
	"testing"
)

func TestIssueAndVerify(t *testing.T) {
	authority, err := NewAuthority("Test Org")
	if err != nil {
		t.Fatalf("NewAuthority() error: %v", err)
	}

	server, err := authority.IssueServer("test-server", []string{"localhost", "127.0.0.1"})
	if err != nil {
		t.Fatalf("IssueServer() error: %v", err)
	}
	if err := authority.Verify(server.Certificate); err != nil {
		t.Errorf("server certificate does not verify: %v", err)
	}
	if len(server.DNSNames) != 1 || server.DNSNames[0] != "localhost" {
		t.Errorf("DNSNames = %v, want [localhost]", server.DNSNames)
	}
	if len(server.IPAddresses) != 1 {
		t.Errorf("IPAddresses = %v, want one entry", server.IPAddresses)
	}

	client, err := authority.IssueClient("test-client")
	if err != nil {
		t.Fatalf("IssueClient() error: %v", err)
	}
	if err := authority.Verify(client.Certificate); err != nil {
		t.Errorf("client certificate does not verify: %v", err)
	}
	if client.Subject.CommonName != "test-client" {
		t.Errorf("client CN = %q", client.Subject.CommonName)
	}
}

func TestAuthorityRoundTrip(t *testing.T) {
	dir := t.TempDir()
	caCert := filepath.Join(dir, "ca.pem")
	caKey := filepath.Join(dir, "ca-key.pem")

	authority, err := NewAuthority("Test Org")
	if err != nil {
		t.Fatal(err)
	}
	if err := authority.SaveCA(caCert, caKey); err != nil {
		t.Fatalf("SaveCA() error: %v", err)
	}

	loaded, err := LoadAuthority(caCert, caKey)
	if err != nil {
		t.Fatalf("LoadAuthority() error: %v", err)
	}

	// A certificate issued by the reloaded authority chains to the same CA.
	server, err := loaded.IssueServer("test-server", []string{"localhost"})
	if err != nil {
		t.Fatal(err)
	}
	if err := authority.Verify(server.Certificate); err != nil {
		t.Errorf("certificate from reloaded authority does not verify: %v", err)
	}
}

func TestVerifyCertificateFile(t *testing.T) {
	dir := t.TempDir()
	caCert := filepath.Join(dir, "ca.pem")
	caKey := filepath.Join(dir, "ca-key.pem")
	serverCert := filepath.Join(dir, "server.pem")

	authority, err := NewAuthority("Test Org")
	if err != nil {
		t.Fatal(err)
	}
	if err := authority.SaveCA(caCert, caKey); err != nil {
		t.Fatal(err)
	}

	server, err := authority.IssueServer("test-server", []string{"localhost"})
	if err != nil {
		t.Fatal(err)
	}
	if err := server.Save(serverCert, ""); err != nil {
		t.Fatal(err)
	}

	result, err := VerifyCertificateFile(serverCert, caCert)
	if err != nil {
		t.Fatalf("VerifyCertificateFile() error: %v", err)
	}
	if !result.Valid {
		t.Errorf("certificate should verify: %s", result.Error)
	}

	// A certificate from a different CA must not verify.
	other, err := NewAuthority("Other Org")
	if err != nil {
		t.Fatal(err)
	}
	otherCA := filepath.Join(dir, "other-ca.pem")
	otherKey := filepath.Join(dir, "other-ca-key.pem")
	if err := other.SaveCA(otherCA, otherKey); err != nil {
		t.Fatal(err)
	}

	result, err = VerifyCertificateFile(serverCert, otherCA)
	if err != nil {
		t.Fatal(err)
	}
	if result.Valid {
		t.Error("certificate should not verify against a different CA")
	}
}
